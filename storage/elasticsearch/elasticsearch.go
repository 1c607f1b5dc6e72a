//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package elasticsearch provides Elasticsearch client interface, implementation and options.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	esv9 "github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

// Client defines the Elasticsearch operations used by the search store.
type Client interface {
	// Ping checks if Elasticsearch is available.
	Ping(ctx context.Context) error
	// CreateIndex creates an index with the provided body.
	CreateIndex(ctx context.Context, indexName string, body []byte) error
	// DeleteIndex deletes the specified index.
	DeleteIndex(ctx context.Context, indexName string) error
	// IndexExists returns whether the specified index exists.
	IndexExists(ctx context.Context, indexName string) (bool, error)
	// IndexDoc indexes a document with the given identifier.
	IndexDoc(ctx context.Context, indexName, id string, body []byte) error
	// Refresh makes recent writes to the index searchable.
	Refresh(ctx context.Context, indexName string) error
	// Search executes a query and returns the raw response body.
	Search(ctx context.Context, indexName string, body []byte) ([]byte, error)
	// Count returns the number of documents matching the query body.
	Count(ctx context.Context, indexName string, body []byte) (int, error)
}

var _ Client = (*client)(nil)

// defaultClientBuilder builds a v9 SDK backed client.
func defaultClientBuilder(builderOpts ...ClientBuilderOpt) (Client, error) {
	o := &ClientBuilderOpts{}
	for _, opt := range builderOpts {
		opt(o)
	}
	if len(o.Addresses) == 0 {
		return nil, errors.New("elasticsearch: addresses are empty")
	}

	cli, err := esv9.NewClient(esv9.Config{
		Addresses:              o.Addresses,
		Username:               o.Username,
		Password:               o.Password,
		APIKey:                 o.APIKey,
		CertificateFingerprint: o.CertificateFingerprint,
		CompressRequestBody:    o.CompressRequestBody,
		RetryOnStatus:          o.RetryOnStatus,
		MaxRetries:             o.MaxRetries,
		Transport:              o.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}
	return NewClient(cli), nil
}

// NewClient wraps an SDK client.
func NewClient(esClient *esv9.Client) Client {
	return &client{esClient: esClient}
}

// client implements the Client interface.
type client struct {
	esClient *esv9.Client
}

// Ping checks if Elasticsearch is available.
func (c *client) Ping(ctx context.Context) error {
	res, err := c.esClient.Ping(c.esClient.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	return closeChecked(res, "ping")
}

// CreateIndex creates an index with the provided body.
func (c *client) CreateIndex(ctx context.Context, indexName string, body []byte) error {
	res, err := c.esClient.Indices.Create(
		indexName,
		c.esClient.Indices.Create.WithContext(ctx),
		c.esClient.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return err
	}
	return closeChecked(res, "create index")
}

// DeleteIndex deletes an index.
func (c *client) DeleteIndex(ctx context.Context, indexName string) error {
	res, err := c.esClient.Indices.Delete(
		[]string{indexName},
		c.esClient.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	return closeChecked(res, "delete index")
}

// IndexExists checks if an index exists.
func (c *client) IndexExists(ctx context.Context, indexName string) (bool, error) {
	res, err := c.esClient.Indices.Exists(
		[]string{indexName},
		c.esClient.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	return res.StatusCode == http.StatusOK, nil
}

// IndexDoc indexes a document.
func (c *client) IndexDoc(ctx context.Context, indexName, id string, body []byte) error {
	res, err := c.esClient.Index(
		indexName,
		bytes.NewReader(body),
		c.esClient.Index.WithContext(ctx),
		c.esClient.Index.WithDocumentID(id),
	)
	if err != nil {
		return err
	}
	return closeChecked(res, "index document")
}

// Refresh refreshes an index.
func (c *client) Refresh(ctx context.Context, indexName string) error {
	res, err := c.esClient.Indices.Refresh(
		c.esClient.Indices.Refresh.WithContext(ctx),
		c.esClient.Indices.Refresh.WithIndex(indexName),
	)
	if err != nil {
		return err
	}
	return closeChecked(res, "refresh")
}

// Search performs a search query.
func (c *client) Search(ctx context.Context, indexName string, body []byte) ([]byte, error) {
	res, err := c.esClient.Search(
		c.esClient.Search.WithContext(ctx),
		c.esClient.Search.WithIndex(indexName),
		c.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s: %s", res.Status(), string(bodyBytes))
	}
	return bodyBytes, nil
}

// Count executes a count query.
func (c *client) Count(ctx context.Context, indexName string, body []byte) (int, error) {
	res, err := c.esClient.Count(
		c.esClient.Count.WithContext(ctx),
		c.esClient.Count.WithIndex(indexName),
		c.esClient.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, err
	}
	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch count failed: %s: %s", res.Status(), string(responseBody))
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(responseBody, &out); err != nil {
		return 0, fmt.Errorf("elasticsearch count: decode response: %w", err)
	}
	return out.Count, nil
}

func closeChecked(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch %s failed: %s", op, res.Status())
	}
	return nil
}
