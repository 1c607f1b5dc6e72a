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
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type roundTripper func(*http.Request) *http.Response

func (f roundTripper) RoundTrip(r *http.Request) (*http.Response, error) { return f(r), nil }

func response(code int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("X-Elastic-Product", "Elasticsearch")
	return resp
}

func TestClient_Lifecycle(t *testing.T) {
	indexCreated := false
	var (
		indexedPath string
		refreshed   bool
		searchBody  string
	)

	rt := roundTripper(func(r *http.Request) *http.Response {
		p := r.URL.Path
		switch {
		case r.Method == http.MethodHead && p == "/":
			return response(http.StatusOK, "")
		case r.Method == http.MethodHead:
			if indexCreated {
				return response(http.StatusOK, "")
			}
			return response(http.StatusNotFound, "")
		case strings.HasSuffix(p, "/_refresh"):
			refreshed = true
			return response(http.StatusOK, `{}`)
		case strings.HasSuffix(p, "/_search"):
			b, _ := io.ReadAll(r.Body)
			searchBody = string(b)
			return response(http.StatusOK, `{"hits":{"hits":[]}}`)
		case strings.HasSuffix(p, "/_count"):
			return response(http.StatusOK, `{"count":2}`)
		case strings.Contains(p, "/_doc/"):
			indexedPath = p
			return response(http.StatusCreated, `{}`)
		case r.Method == http.MethodPut:
			indexCreated = true
			return response(http.StatusOK, `{}`)
		case r.Method == http.MethodDelete:
			indexCreated = false
			return response(http.StatusOK, `{}`)
		}
		return response(http.StatusOK, `{}`)
	})

	c, err := defaultClientBuilder(WithAddresses([]string{"http://mock"}), WithTransport(rt))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	exists, err := c.IndexExists(ctx, "archive")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, c.CreateIndex(ctx, "archive", []byte(`{"mappings":{}}`)))
	exists, err = c.IndexExists(ctx, "archive")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, c.IndexDoc(ctx, "archive", "1", []byte(`{"headline":"story"}`)))
	require.Equal(t, "/archive/_doc/1", indexedPath)
	require.NoError(t, c.Refresh(ctx, "archive"))
	require.True(t, refreshed)

	body, err := c.Search(ctx, "archive", []byte(`{"query":{"match_all":{}}}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"hits":{"hits":[]}}`, string(body))
	require.JSONEq(t, `{"query":{"match_all":{}}}`, searchBody)

	n, err := c.Count(ctx, "archive", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, c.DeleteIndex(ctx, "archive"))
	require.False(t, indexCreated)
}

func TestClient_Errors(t *testing.T) {
	rt := roundTripper(func(r *http.Request) *http.Response {
		return response(http.StatusBadRequest, `{"error":"bad"}`)
	})
	c, err := defaultClientBuilder(WithAddresses([]string{"http://mock"}), WithTransport(rt))
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, c.CreateIndex(ctx, "archive", []byte(`{}`)))
	require.Error(t, c.IndexDoc(ctx, "archive", "1", []byte(`{}`)))
	_, err = c.Search(ctx, "archive", []byte(`{}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "elasticsearch search failed")
	_, err = c.Count(ctx, "archive", []byte(`{}`))
	require.Error(t, err)
}

func TestDefaultClientBuilder_NoAddresses(t *testing.T) {
	_, err := defaultClientBuilder()
	require.EqualError(t, err, "elasticsearch: addresses are empty")
}
