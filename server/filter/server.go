//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package filter provides an HTTP server that translates, validates and
// applies filter conditions.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition"
	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition/translator"
	"trpc.group/trpc-go/trpc-publish-filter-go/log"
	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
)

// Backends accepted by the backend query parameter.
const (
	BackendMongo   = "mongo"
	BackendElastic = "elastic"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ErrConditionExists is returned when a created condition reuses a known ID.
var ErrConditionExists = errors.New("filter condition id already exists")

// Server exposes filter conditions over HTTP.
type Server struct {
	router     *mux.Router
	translator *translator.Service
	resources  *resource.Service

	mu         sync.RWMutex
	conditions []filtercondition.FilterCondition
}

// Option configures the Server instance.
type Option func(*Server)

// WithTranslator replaces the default translation service.
func WithTranslator(t *translator.Service) Option {
	return func(s *Server) { s.translator = t }
}

// WithResourceService enables the search endpoint.
func WithResourceService(svc *resource.Service) Option {
	return func(s *Server) { s.resources = svc }
}

// WithConditions seeds the known conditions, usually from
// filtercondition.LoadConditionsFile. New conditions are checked against them.
func WithConditions(conds []filtercondition.FilterCondition) Option {
	return func(s *Server) { s.conditions = append(s.conditions, conds...) }
}

// New creates a server.
func New(opts ...Option) *Server {
	s := &Server{router: mux.NewRouter()}
	for _, opt := range opts {
		opt(s)
	}
	if s.translator == nil {
		s.translator = translator.New()
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/filter_conditions", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/filter_conditions", s.handleCreate).Methods(http.MethodPost)
	s.router.HandleFunc("/filter_conditions/translate", s.handleTranslate).Methods(http.MethodPost)
	s.router.HandleFunc("/filter_conditions/validate", s.handleValidate).Methods(http.MethodPost)
	s.router.HandleFunc("/resources/{collection}/search", s.handleSearch).Methods(http.MethodPost)

	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.PathPrefix("/").HandlerFunc(preflight).Methods(http.MethodOptions)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	conds := make([]filtercondition.FilterCondition, len(s.conditions))
	copy(conds, s.conditions)
	s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, conds)
}

// handleCreate validates a condition, rejects it when an equivalent one is
// known and stores it otherwise.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	cond, ok := s.decodeCondition(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	err := s.checkID(cond)
	if err == nil {
		err = s.check(cond)
	}
	if err == nil {
		s.conditions = append(s.conditions, cond)
	}
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	log.Infof("filter condition added: field=%s operator=%s", cond.Field, cond.Operator)
	s.writeJSON(w, http.StatusCreated, cond)
}

// handleTranslate returns both query fragments, or one of them when the
// backend query parameter is set.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	cond, ok := s.decodeCondition(w, r)
	if !ok {
		return
	}
	var (
		t   *translator.Translation
		err error
	)
	switch backend := r.URL.Query().Get("backend"); backend {
	case "":
		t, err = s.translator.Translate(cond)
	case BackendMongo:
		t, err = s.translator.TranslateToDocumentQuery(cond)
	case BackendElastic:
		t, err = s.translator.TranslateToSearchQuery(cond)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown backend %q", backend))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	cond, ok := s.decodeCondition(w, r)
	if !ok {
		return
	}
	s.mu.RLock()
	err := s.check(cond)
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch translates the posted condition and returns the matching
// records of the collection.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.resources == nil {
		s.writeError(w, http.StatusNotImplemented, errors.New("no resource service configured"))
		return
	}
	cond, ok := s.decodeCondition(w, r)
	if !ok {
		return
	}
	collection := mux.Vars(r)["collection"]

	var (
		cursor *resource.Cursor
		err    error
	)
	switch backend := r.URL.Query().Get("backend"); backend {
	case "", BackendMongo:
		var t *translator.Translation
		if t, err = s.translator.TranslateToDocumentQuery(cond); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		cursor, err = s.resources.GetFromMongo(r.Context(), collection, t.Mongo)
	case BackendElastic:
		var t *translator.Translation
		if t, err = s.translator.TranslateToSearchQuery(cond); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		cursor, err = s.resources.Get(r.Context(), collection, t.Elastic)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown backend %q", backend))
		return
	}
	if err != nil {
		log.Errorf("search %s failed: %v", collection, err)
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":   cursor.Count(),
		"records": cursor.Records(),
	})
}

// check must be called with s.mu held.
func (s *Server) check(cond filtercondition.FilterCondition) error {
	if err := cond.Validate(); err != nil {
		return err
	}
	return filtercondition.CheckSimilar(s.conditions, cond)
}

// checkID rejects a condition whose ID is already taken. Callers hold s.mu.
func (s *Server) checkID(cond filtercondition.FilterCondition) error {
	if cond.ID == "" {
		return nil
	}
	for _, c := range s.conditions {
		if c.ID == cond.ID {
			return fmt.Errorf("%w: %s", ErrConditionExists, cond.ID)
		}
	}
	return nil
}

func (s *Server) decodeCondition(w http.ResponseWriter, r *http.Request) (filtercondition.FilterCondition, bool) {
	var cond filtercondition.FilterCondition
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cond); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode filter condition: %w", err))
		return cond, false
	}
	return cond, true
}

func statusFor(err error) int {
	if errors.Is(err, filtercondition.ErrSimilarCondition) || errors.Is(err, ErrConditionExists) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
