//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package mongodb provides the MongoDB instance info management.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	mongoRegistry = make(map[string][]ClientBuilderOpt)
}

var mongoRegistry map[string][]ClientBuilderOpt

type clientBuilder func(ctx context.Context, builderOpts ...ClientBuilderOpt) (Client, error)

var globalBuilder clientBuilder = defaultClientBuilder

// SetClientBuilder sets the mongodb client builder.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

// GetClientBuilder gets the mongodb client builder.
func GetClientBuilder() clientBuilder {
	return globalBuilder
}

const defaultConnectTimeout = 10 * time.Second

// defaultClientBuilder connects with the official driver and pings the server.
func defaultClientBuilder(ctx context.Context, builderOpts ...ClientBuilderOpt) (Client, error) {
	o := &ClientBuilderOpts{ConnectTimeout: defaultConnectTimeout}
	for _, opt := range builderOpts {
		opt(o)
	}

	if o.URI == "" {
		return nil, errors.New("mongodb: uri is empty")
	}
	if o.Database == "" {
		return nil, errors.New("mongodb: database is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()

	cli, err := mongo.Connect(connectCtx, options.Client().ApplyURI(o.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := cli.Ping(connectCtx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	return &driverClient{client: cli, db: cli.Database(o.Database)}, nil
}

// ClientBuilderOpt is the option for the mongodb client.
type ClientBuilderOpt func(*ClientBuilderOpts)

// ClientBuilderOpts is the options for the mongodb client.
type ClientBuilderOpts struct {
	// URI is the mongodb connection string, e.g. "mongodb://localhost:27017".
	URI string

	// Database is the database holding the collections.
	Database string

	// ConnectTimeout bounds connecting and the initial ping.
	ConnectTimeout time.Duration

	// ExtraOptions is the extra options for customized mongodb client builders.
	ExtraOptions []any
}

// WithClientURI sets the mongodb connection string for clientBuilder.
func WithClientURI(uri string) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.URI = uri
	}
}

// WithDatabase sets the database name for clientBuilder.
func WithDatabase(database string) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.Database = database
	}
}

// WithConnectTimeout sets the connect timeout for clientBuilder.
func WithConnectTimeout(timeout time.Duration) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.ConnectTimeout = timeout
	}
}

// WithExtraOptions sets the mongodb client extra options for clientBuilder.
func WithExtraOptions(extraOptions ...any) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.ExtraOptions = append(opts.ExtraOptions, extraOptions...)
	}
}

// RegisterMongoDBInstance registers a mongodb instance with the given options.
// Registering a name again appends to its options; later options win.
func RegisterMongoDBInstance(name string, opts ...ClientBuilderOpt) {
	mongoRegistry[name] = append(mongoRegistry[name], opts...)
}

// GetMongoDBInstance gets the mongodb instance options by name.
func GetMongoDBInstance(name string) ([]ClientBuilderOpt, bool) {
	if _, ok := mongoRegistry[name]; !ok {
		return nil, false
	}
	return mongoRegistry[name], true
}

// Client defines the MongoDB operations used by the document store.
type Client interface {
	// InsertMany inserts documents into collection.
	InsertMany(ctx context.Context, collection string, documents []any) error

	// Find returns every document of collection matching filter.
	Find(ctx context.Context, collection string, filter any, opts ...*options.FindOptions) ([]bson.M, error)

	// CountDocuments counts the documents of collection matching filter.
	CountDocuments(ctx context.Context, collection string, filter any) (int64, error)

	// Drop removes collection.
	Drop(ctx context.Context, collection string) error

	// Disconnect closes the underlying connections.
	Disconnect(ctx context.Context) error
}

// driverClient implements Client on the official driver.
type driverClient struct {
	client *mongo.Client
	db     *mongo.Database
}

// InsertMany inserts documents into collection.
func (c *driverClient) InsertMany(ctx context.Context, collection string, documents []any) error {
	if len(documents) == 0 {
		return nil
	}
	if _, err := c.db.Collection(collection).InsertMany(ctx, documents); err != nil {
		return fmt.Errorf("mongodb: insert into %s: %w", collection, err)
	}
	return nil
}

// Find returns every document of collection matching filter.
func (c *driverClient) Find(ctx context.Context, collection string, filter any, opts ...*options.FindOptions) ([]bson.M, error) {
	cur, err := c.db.Collection(collection).Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongodb: find in %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decode %s: %w", collection, err)
	}
	return docs, nil
}

// CountDocuments counts the documents of collection matching filter.
func (c *driverClient) CountDocuments(ctx context.Context, collection string, filter any) (int64, error) {
	n, err := c.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongodb: count %s: %w", collection, err)
	}
	return n, nil
}

// Drop removes collection.
func (c *driverClient) Drop(ctx context.Context, collection string) error {
	return c.db.Collection(collection).Drop(ctx)
}

// Disconnect closes the underlying connections.
func (c *driverClient) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
