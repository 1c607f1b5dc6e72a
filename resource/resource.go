//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package resource stores publishing records and reads them back through
// translated filter fragments.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	itelemetry "trpc.group/trpc-go/trpc-publish-filter-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-publish-filter-go/log"
	"trpc.group/trpc-go/trpc-publish-filter-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-publish-filter-go/telemetry/trace"
)

// IDField is the key that identifies a record in every store.
const IDField = "_id"

var (
	// ErrNoDocumentStore is returned by New without a document store.
	ErrNoDocumentStore = errors.New("resource: document store is required")
	// ErrNoSearchStore is returned by Get when no search store is configured.
	ErrNoSearchStore = errors.New("resource: search store is not configured")
	// ErrEmptyCollection is returned for an empty collection name.
	ErrEmptyCollection = errors.New("resource: collection is empty")
)

// Record is one stored document.
type Record map[string]any

// ID returns the record identifier, or nil when unset.
func (r Record) ID() any {
	return r[IDField]
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DocumentStore persists records and answers MongoDB filter documents.
type DocumentStore interface {
	// Insert stores records and returns them with IDField set.
	Insert(ctx context.Context, collection string, records []Record) ([]Record, error)
	// Find returns the records matching filter in insertion order.
	Find(ctx context.Context, collection string, filter bson.D) ([]Record, error)
}

// SearchStore indexes records and answers Elasticsearch queries.
type SearchStore interface {
	// Index makes records searchable. Each record must carry IDField.
	Index(ctx context.Context, index string, records []Record) error
	// Search returns the records matching query in the index's ranking order.
	Search(ctx context.Context, index string, query *types.Query) ([]Record, error)
}

// Service writes records to both stores and queries either of them.
type Service struct {
	docs    DocumentStore
	search  SearchStore
	queries otelmetric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithSearchStore enables Get and mirrors inserts into store.
func WithSearchStore(store SearchStore) Option {
	return func(s *Service) { s.search = store }
}

// New creates a resource service over docs.
func New(docs DocumentStore, opts ...Option) (*Service, error) {
	if docs == nil {
		return nil, ErrNoDocumentStore
	}
	s := &Service{docs: docs}
	for _, opt := range opts {
		opt(s)
	}
	queries, err := metric.Meter.Int64Counter("publish.resource.queries",
		otelmetric.WithDescription("Number of resource queries by backend."),
	)
	if err != nil {
		return nil, fmt.Errorf("resource: create query counter: %w", err)
	}
	s.queries = queries
	return s, nil
}

// Insert stores records in the document store and, when configured, indexes
// them in the search store under the same collection name.
func (s *Service) Insert(ctx context.Context, collection string, records []Record) (err error) {
	if collection == "" {
		return ErrEmptyCollection
	}
	ctx, span := trace.Tracer.Start(ctx, "resource.Insert", oteltrace.WithAttributes(
		itelemetry.KeyCollection.String(collection),
		itelemetry.KeyRecordCount.Int(len(records)),
	))
	defer func() { itelemetry.EndSpan(span, err) }()

	stored, err := s.docs.Insert(ctx, collection, records)
	if err != nil {
		return fmt.Errorf("resource: insert into %s: %w", collection, err)
	}
	if s.search == nil {
		return nil
	}
	if err := s.search.Index(ctx, collection, stored); err != nil {
		return fmt.Errorf("resource: index %s: %w", collection, err)
	}
	log.Debugf("resource: inserted %d records into %s", len(stored), collection)
	return nil
}

// GetFromMongo returns the records of collection matching lookup, ordered by
// insertion.
func (s *Service) GetFromMongo(ctx context.Context, collection string, lookup bson.D) (_ *Cursor, err error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}
	ctx, span := s.startQuery(ctx, "resource.GetFromMongo", collection, itelemetry.BackendDocument)
	defer func() { itelemetry.EndSpan(span, err) }()

	records, err := s.docs.Find(ctx, collection, lookup)
	if err != nil {
		return nil, fmt.Errorf("resource: find in %s: %w", collection, err)
	}
	span.SetAttributes(itelemetry.KeyRecordCount.Int(len(records)))
	log.Debugf("resource: %s lookup matched %d records", collection, len(records))
	return NewCursor(records), nil
}

// Get returns the records of collection matching query from the search store.
func (s *Service) Get(ctx context.Context, collection string, query *types.Query) (_ *Cursor, err error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}
	if s.search == nil {
		return nil, ErrNoSearchStore
	}
	ctx, span := s.startQuery(ctx, "resource.Get", collection, itelemetry.BackendSearch)
	defer func() { itelemetry.EndSpan(span, err) }()

	records, err := s.search.Search(ctx, collection, query)
	if err != nil {
		return nil, fmt.Errorf("resource: search %s: %w", collection, err)
	}
	span.SetAttributes(itelemetry.KeyRecordCount.Int(len(records)))
	log.Debugf("resource: %s search matched %d records", collection, len(records))
	return NewCursor(records), nil
}

func (s *Service) startQuery(ctx context.Context, name, collection, backend string) (context.Context, oteltrace.Span) {
	attrs := []attribute.KeyValue{
		itelemetry.KeyCollection.String(collection),
		itelemetry.KeyBackend.String(backend),
	}
	s.queries.Add(ctx, 1, otelmetric.WithAttributes(attrs...))
	return trace.Tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}
