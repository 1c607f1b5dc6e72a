//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package elasticsearch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAndBuilder(t *testing.T) {
	oldRegistry := esRegistry
	esRegistry = make(map[string][]ClientBuilderOpt)
	defer func() { esRegistry = oldRegistry }()

	_, ok := GetElasticsearchInstance("search")
	require.False(t, ok)

	RegisterElasticsearchInstance("search",
		WithAddresses([]string{"http://es:9200"}),
		WithUsername("elastic"),
		WithPassword("secret"),
	)
	RegisterElasticsearchInstance("search", WithMaxRetries(3), WithRetryOnStatus([]int{502, 503}))

	opts, ok := GetElasticsearchInstance("search")
	require.True(t, ok)
	require.Len(t, opts, 5)

	o := &ClientBuilderOpts{}
	for _, opt := range opts {
		opt(o)
	}
	require.Equal(t, []string{"http://es:9200"}, o.Addresses)
	require.Equal(t, "elastic", o.Username)
	require.Equal(t, "secret", o.Password)
	require.Equal(t, 3, o.MaxRetries)
	require.Equal(t, []int{502, 503}, o.RetryOnStatus)
}

func TestOptions(t *testing.T) {
	o := &ClientBuilderOpts{}
	for _, opt := range []ClientBuilderOpt{
		WithAPIKey("key"),
		WithCertificateFingerprint("fp"),
		WithCompressRequestBody(true),
		WithExtraOptions("a"),
		WithExtraOptions("b"),
	} {
		opt(o)
	}
	require.Equal(t, "key", o.APIKey)
	require.Equal(t, "fp", o.CertificateFingerprint)
	require.True(t, o.CompressRequestBody)
	require.Equal(t, []any{"a", "b"}, o.ExtraOptions)
}

func TestSetGetClientBuilder(t *testing.T) {
	old := GetClientBuilder()
	defer SetClientBuilder(old)

	called := false
	SetClientBuilder(func(opts ...ClientBuilderOpt) (Client, error) {
		called = true
		return nil, nil
	})
	_, err := GetClientBuilder()()
	require.NoError(t, err)
	require.True(t, called)
}
