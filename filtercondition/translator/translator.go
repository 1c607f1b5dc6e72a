//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package translator turns filter conditions into document store and search
// index query fragments.
package translator

import (
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"go.mongodb.org/mongo-driver/bson"

	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition"
	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition/elastic"
	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition/mongo"
	"trpc.group/trpc-go/trpc-publish-filter-go/log"
)

// Translation holds the query fragments built for one condition.
// A Translation is never modified after it is returned.
type Translation struct {
	// Condition is a copy of the translated condition.
	Condition filtercondition.FilterCondition `json:"condition"`
	// Mongo is the document store fragment, nil unless requested.
	Mongo bson.D `json:"mongo_translation,omitempty"`
	// Elastic is the search index fragment, nil unless requested.
	Elastic *types.Query `json:"elastic_translation,omitempty"`
}

// MarshalJSON renders the document store fragment as relaxed MongoDB extended JSON.
func (t Translation) MarshalJSON() ([]byte, error) {
	out := struct {
		Condition filtercondition.FilterCondition `json:"condition"`
		Mongo     json.RawMessage                 `json:"mongo_translation,omitempty"`
		Elastic   *types.Query                    `json:"elastic_translation,omitempty"`
	}{Condition: t.Condition, Elastic: t.Elastic}
	if t.Mongo != nil {
		raw, err := bson.MarshalExtJSON(t.Mongo, false, false)
		if err != nil {
			return nil, fmt.Errorf("marshal mongo translation: %w", err)
		}
		out.Mongo = raw
	}
	return json.Marshal(out)
}

// Service translates filter conditions. It holds no mutable state and is safe
// for concurrent use.
type Service struct {
	mongoConverter   filtercondition.Converter[bson.D]
	elasticConverter filtercondition.Converter[*types.Query]
}

// Option configures a Service.
type Option func(*Service)

// WithMongoConverter replaces the document store converter.
func WithMongoConverter(c filtercondition.Converter[bson.D]) Option {
	return func(s *Service) { s.mongoConverter = c }
}

// WithElasticConverter replaces the search index converter.
func WithElasticConverter(c filtercondition.Converter[*types.Query]) Option {
	return func(s *Service) { s.elasticConverter = c }
}

// New creates a translation service.
func New(opts ...Option) *Service {
	s := &Service{
		mongoConverter:   mongo.NewConverter(),
		elasticConverter: elastic.NewConverter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TranslateToDocumentQuery builds the MongoDB fragment for cond.
func (s *Service) TranslateToDocumentQuery(cond filtercondition.FilterCondition) (*Translation, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	q, err := s.mongoConverter.Convert(&cond)
	if err != nil {
		return nil, fmt.Errorf("translate %s %s to mongo: %w", cond.Field, cond.Operator, err)
	}
	log.Debugf("mongo translation for %s %s %q: %v", cond.Field, cond.Operator, cond.Value, q)
	return &Translation{Condition: cond, Mongo: q}, nil
}

// TranslateToSearchQuery builds the Elasticsearch fragment for cond.
func (s *Service) TranslateToSearchQuery(cond filtercondition.FilterCondition) (*Translation, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	q, err := s.elasticConverter.Convert(&cond)
	if err != nil {
		return nil, fmt.Errorf("translate %s %s to elastic: %w", cond.Field, cond.Operator, err)
	}
	log.Debugf("elastic translation for %s %s %q", cond.Field, cond.Operator, cond.Value)
	return &Translation{Condition: cond, Elastic: q}, nil
}

// Translate builds both fragments for cond.
func (s *Service) Translate(cond filtercondition.FilterCondition) (*Translation, error) {
	doc, err := s.TranslateToDocumentQuery(cond)
	if err != nil {
		return nil, err
	}
	search, err := s.TranslateToSearchQuery(cond)
	if err != nil {
		return nil, err
	}
	return &Translation{Condition: cond, Mongo: doc.Mongo, Elastic: search.Elastic}, nil
}
