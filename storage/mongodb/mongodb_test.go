//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetGetClientBuilder(t *testing.T) {
	oldBuilder := GetClientBuilder()
	defer func() { SetClientBuilder(oldBuilder) }()

	invoked := false
	var got *ClientBuilderOpts
	custom := func(ctx context.Context, opts ...ClientBuilderOpt) (Client, error) {
		invoked = true
		got = &ClientBuilderOpts{}
		for _, opt := range opts {
			opt(got)
		}
		return nil, nil
	}

	SetClientBuilder(custom)
	_, err := GetClientBuilder()(context.Background(), WithClientURI("mongodb://localhost:27017"), WithDatabase("superdesk"))
	require.NoError(t, err)
	require.True(t, invoked, "custom builder was not invoked")
	require.Equal(t, "mongodb://localhost:27017", got.URI)
	require.Equal(t, "superdesk", got.Database)
}

func TestDefaultClientBuilder_Validation(t *testing.T) {
	_, err := defaultClientBuilder(context.Background())
	require.EqualError(t, err, "mongodb: uri is empty")

	_, err = defaultClientBuilder(context.Background(), WithClientURI("mongodb://localhost:27017"))
	require.EqualError(t, err, "mongodb: database is empty")
}

func TestDefaultClientBuilder_InvalidURI(t *testing.T) {
	_, err := defaultClientBuilder(context.Background(),
		WithClientURI("not-a-mongo-uri"),
		WithDatabase("superdesk"),
		WithConnectTimeout(time.Second),
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mongodb: connect")
}

func TestRegisterAndGetMongoDBInstance(t *testing.T) {
	oldRegistry := mongoRegistry
	mongoRegistry = make(map[string][]ClientBuilderOpt)
	defer func() { mongoRegistry = oldRegistry }()

	_, ok := GetMongoDBInstance("archive")
	require.False(t, ok)

	RegisterMongoDBInstance("archive", WithClientURI("mongodb://a:27017"))
	RegisterMongoDBInstance("archive", WithDatabase("superdesk"), WithExtraOptions("x", 1))

	opts, ok := GetMongoDBInstance("archive")
	require.True(t, ok)
	require.Len(t, opts, 3)

	o := &ClientBuilderOpts{}
	for _, opt := range opts {
		opt(o)
	}
	require.Equal(t, "mongodb://a:27017", o.URI)
	require.Equal(t, "superdesk", o.Database)
	require.Equal(t, []any{"x", 1}, o.ExtraOptions)
}
