//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package mongodb implements the resource document store on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
	storage "trpc.group/trpc-go/trpc-publish-filter-go/storage/mongodb"
)

var _ resource.DocumentStore = (*Store)(nil)

// Store is a resource.DocumentStore backed by a MongoDB database.
type Store struct {
	client storage.Client
	owned  bool
}

type options struct {
	uri            string
	database       string
	instanceName   string
	connectTimeout time.Duration
	extraOptions   []any
	client         storage.Client
}

// Option configures a Store.
type Option func(*options)

// WithClientURI sets the MongoDB connection string.
func WithClientURI(uri string) Option {
	return func(o *options) { o.uri = uri }
}

// WithDatabase sets the database that holds the collections.
func WithDatabase(database string) Option {
	return func(o *options) { o.database = database }
}

// WithMongoDBInstance uses the client options registered under name with
// storage/mongodb.RegisterMongoDBInstance. It takes precedence over
// WithClientURI and WithDatabase.
func WithMongoDBInstance(name string) Option {
	return func(o *options) { o.instanceName = name }
}

// WithConnectTimeout bounds connecting and the initial ping.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *options) { o.connectTimeout = timeout }
}

// WithExtraOptions passes builder specific options through to the client builder.
func WithExtraOptions(extraOptions ...any) Option {
	return func(o *options) { o.extraOptions = append(o.extraOptions, extraOptions...) }
}

// WithClient uses an existing client. Close leaves it connected.
func WithClient(client storage.Client) Option {
	return func(o *options) { o.client = client }
}

// New connects a document store.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.client != nil {
		return &Store{client: o.client}, nil
	}

	var builderOpts []storage.ClientBuilderOpt
	if o.instanceName != "" {
		registered, ok := storage.GetMongoDBInstance(o.instanceName)
		if !ok {
			return nil, fmt.Errorf("mongodb instance %s not found", o.instanceName)
		}
		builderOpts = registered
	} else {
		builderOpts = []storage.ClientBuilderOpt{
			storage.WithClientURI(o.uri),
			storage.WithDatabase(o.database),
		}
	}
	if o.connectTimeout > 0 {
		builderOpts = append(builderOpts, storage.WithConnectTimeout(o.connectTimeout))
	}
	if len(o.extraOptions) > 0 {
		builderOpts = append(builderOpts, storage.WithExtraOptions(o.extraOptions...))
	}

	client, err := storage.GetClientBuilder()(ctx, builderOpts...)
	if err != nil {
		return nil, fmt.Errorf("mongodb create client: %w", err)
	}
	return &Store{client: client, owned: true}, nil
}

// Insert writes records to collection. Records without an identifier get a
// new ObjectID, so ascending _id order follows insertion order.
func (s *Store) Insert(ctx context.Context, collection string, records []resource.Record) ([]resource.Record, error) {
	if len(records) == 0 {
		return []resource.Record{}, nil
	}
	stored := make([]resource.Record, 0, len(records))
	docs := make([]any, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("mongodb: record %d is nil", i)
		}
		c := r.Clone()
		if c.ID() == nil {
			c[resource.IDField] = primitive.NewObjectID()
		}
		stored = append(stored, c)
		docs = append(docs, bson.M(c))
	}
	if err := s.client.InsertMany(ctx, collection, docs); err != nil {
		return nil, err
	}
	return stored, nil
}

// Find returns the documents of collection matching filter in ascending _id order.
func (s *Store) Find(ctx context.Context, collection string, filter bson.D) ([]resource.Record, error) {
	if filter == nil {
		filter = bson.D{}
	}
	docs, err := s.client.Find(ctx, collection, filter,
		mongooptions.Find().SetSort(bson.D{{Key: resource.IDField, Value: 1}}))
	if err != nil {
		return nil, err
	}
	records := make([]resource.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, resource.Record(d))
	}
	return records, nil
}

// Drop removes collection.
func (s *Store) Drop(ctx context.Context, collection string) error {
	return s.client.Drop(ctx, collection)
}

// Close disconnects a client the store created itself.
func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mongodb disconnect: %w", err)
	}
	return nil
}
