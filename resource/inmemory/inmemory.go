//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides a disposable document store and search index
// that evaluate translated filter fragments without external services.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
)

var (
	_ resource.DocumentStore = (*Store)(nil)
	_ resource.SearchStore   = (*Store)(nil)
)

// Store keeps collections and search indices in memory. Records keep their
// insertion order. A Store is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]resource.Record
	indices     map[string][]resource.Record
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string][]resource.Record),
		indices:     make(map[string][]resource.Record),
	}
}

// Insert appends copies of records to collection. Records without an
// identifier get a random UUID.
func (s *Store) Insert(ctx context.Context, collection string, records []resource.Record) ([]resource.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.collections[collection]
	seen := make(map[any]struct{}, len(existing)+len(records))
	for _, r := range existing {
		seen[r.ID()] = struct{}{}
	}
	stored := make([]resource.Record, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("inmemory: record %d is nil", i)
		}
		c := r.Clone()
		if c.ID() == nil {
			c[resource.IDField] = uuid.NewString()
		}
		if _, dup := seen[c.ID()]; dup {
			return nil, fmt.Errorf("inmemory: duplicate %s %v in %s", resource.IDField, c.ID(), collection)
		}
		seen[c.ID()] = struct{}{}
		stored = append(stored, c)
	}
	s.collections[collection] = append(existing, stored...)
	return cloneAll(stored), nil
}

// Find returns the records of collection that match filter.
func (s *Store) Find(ctx context.Context, collection string, filter bson.D) ([]resource.Record, error) {
	match, err := compileFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("inmemory: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectRecords(s.collections[collection], match), nil
}

// Index adds records to index, replacing any with the same identifier.
func (s *Store) Index(ctx context.Context, index string, records []resource.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.indices[index]
	pos := make(map[any]int, len(docs))
	for i, d := range docs {
		pos[d.ID()] = i
	}
	for i, r := range records {
		if r == nil || r.ID() == nil {
			return fmt.Errorf("inmemory: record %d has no %s", i, resource.IDField)
		}
		c := r.Clone()
		if at, ok := pos[c.ID()]; ok {
			docs[at] = c
			continue
		}
		pos[c.ID()] = len(docs)
		docs = append(docs, c)
	}
	s.indices[index] = docs
	return nil
}

// Search returns the documents of index that match query. A nil query
// matches everything.
func (s *Store) Search(ctx context.Context, index string, query *types.Query) ([]resource.Record, error) {
	match, err := compileQuery(query)
	if err != nil {
		return nil, fmt.Errorf("inmemory: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectRecords(s.indices[index], match), nil
}

// Drop removes collection and the index of the same name.
func (s *Store) Drop(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	delete(s.indices, collection)
}

func selectRecords(records []resource.Record, match matchFunc) []resource.Record {
	out := make([]resource.Record, 0)
	for _, r := range records {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func cloneAll(records []resource.Record) []resource.Record {
	out := make([]resource.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
