//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package elasticsearch implements the resource search store on Elasticsearch.
package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/elastic/go-elasticsearch/v9/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-publish-filter-go/log"
	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
	storage "trpc.group/trpc-go/trpc-publish-filter-go/storage/elasticsearch"
)

const defaultMaxResults = 1000

var _ resource.SearchStore = (*Store)(nil)

type options struct {
	addresses     []string
	username      string
	password      string
	apiKey        string
	maxRetries    int
	retryOnStatus []int
	transport     http.RoundTripper
	instanceName  string
	client        storage.Client
	maxResults    int
	keywordFields []string
	parallelism   int
}

var defaultOptions = options{
	addresses:  []string{"http://localhost:9200"},
	maxRetries: 3,
	retryOnStatus: []int{http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusTooManyRequests},
	maxResults:  defaultMaxResults,
	parallelism: 1,
}

// Option configures a Store.
type Option func(*options)

// WithAddresses sets the Elasticsearch node addresses.
func WithAddresses(addresses []string) Option {
	return func(o *options) { o.addresses = addresses }
}

// WithUsername sets the username for basic authentication.
func WithUsername(username string) Option {
	return func(o *options) { o.username = username }
}

// WithPassword sets the password for basic authentication.
func WithPassword(password string) Option {
	return func(o *options) { o.password = password }
}

// WithAPIKey sets the API key for authentication.
func WithAPIKey(apiKey string) Option {
	return func(o *options) { o.apiKey = apiKey }
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(maxRetries int) Option {
	return func(o *options) { o.maxRetries = maxRetries }
}

// WithTransport sets the HTTP transport of the underlying client.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithElasticsearchInstance uses the client options registered under name
// with storage/elasticsearch.RegisterElasticsearchInstance.
func WithElasticsearchInstance(name string) Option {
	return func(o *options) { o.instanceName = name }
}

// WithClient uses an existing client.
func WithClient(client storage.Client) Option {
	return func(o *options) { o.client = client }
}

// WithMaxResults caps the number of hits a search returns.
func WithMaxResults(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxResults = n
		}
	}
}

// WithKeywordFields maps fields as keyword when an index is created, so
// terms, prefix and wildcard queries see the whole value.
func WithKeywordFields(fields ...string) Option {
	return func(o *options) { o.keywordFields = append(o.keywordFields, fields...) }
}

// WithIndexParallelism indexes up to n records at once.
func WithIndexParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// Store is a resource.SearchStore backed by Elasticsearch. Each resource
// collection maps to an index of the same name.
type Store struct {
	client storage.Client
	option options
}

// New creates a search store.
func New(opts ...Option) (*Store, error) {
	option := defaultOptions
	for _, opt := range opts {
		opt(&option)
	}
	if option.client != nil {
		return &Store{client: option.client, option: option}, nil
	}

	var builderOpts []storage.ClientBuilderOpt
	if option.instanceName != "" {
		registered, ok := storage.GetElasticsearchInstance(option.instanceName)
		if !ok {
			return nil, fmt.Errorf("elasticsearch instance %s not found", option.instanceName)
		}
		builderOpts = registered
	} else {
		builderOpts = []storage.ClientBuilderOpt{
			storage.WithAddresses(option.addresses),
			storage.WithUsername(option.username),
			storage.WithPassword(option.password),
			storage.WithAPIKey(option.apiKey),
			storage.WithMaxRetries(option.maxRetries),
			storage.WithRetryOnStatus(option.retryOnStatus),
			storage.WithTransport(option.transport),
		}
	}
	client, err := storage.GetClientBuilder()(builderOpts...)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch create client: %w", err)
	}
	return &Store{client: client, option: option}, nil
}

// Index stores records as documents of index and refreshes it so they are
// searchable at once. The record identifier becomes the document _id.
func (s *Store) Index(ctx context.Context, index string, records []resource.Record) error {
	if err := s.ensureIndex(ctx, index); err != nil {
		return err
	}
	for i, r := range records {
		if r == nil || r.ID() == nil {
			return fmt.Errorf("elasticsearch: record %d has no %s", i, resource.IDField)
		}
	}
	var err error
	if s.option.parallelism > 1 && len(records) > 1 {
		err = s.indexConcurrent(ctx, index, records)
	} else {
		for _, r := range records {
			if err = s.indexRecord(ctx, index, r); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}
	if err := s.client.Refresh(ctx, index); err != nil {
		return fmt.Errorf("elasticsearch refresh %s: %w", index, err)
	}
	return nil
}

func (s *Store) indexRecord(ctx context.Context, index string, r resource.Record) error {
	source := r.Clone()
	delete(source, resource.IDField)
	body, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("elasticsearch marshal record %v: %w", r.ID(), err)
	}
	if err := s.client.IndexDoc(ctx, index, fmt.Sprint(r.ID()), body); err != nil {
		return fmt.Errorf("elasticsearch index record %v: %w", r.ID(), err)
	}
	return nil
}

// indexConcurrent indexes records on a worker pool and returns the first error.
func (s *Store) indexConcurrent(ctx context.Context, index string, records []resource.Record) error {
	pool, err := ants.NewPool(s.option.parallelism)
	if err != nil {
		return fmt.Errorf("failed to create index worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	errCh := make(chan error, len(records))
	for _, r := range records {
		wg.Add(1)
		record := r
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := s.indexRecord(ctx, index, record); err != nil {
				errCh <- err
			}
		}); err != nil {
			wg.Done()
			errCh <- fmt.Errorf("failed to submit index task: %w", err)
		}
	}
	wg.Wait()
	close(errCh)
	return <-errCh
}

// Search runs query as a non-scoring filter and returns the hits in the
// order Elasticsearch ranks them. The _id of each hit is restored as a string.
func (s *Store) Search(ctx context.Context, index string, query *types.Query) ([]resource.Record, error) {
	body, err := json.Marshal(s.buildSearchBody(query))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch marshal search body: %w", err)
	}
	data, err := s.client.Search(ctx, index, body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search %s: %w", index, err)
	}
	return parseHits(data)
}

// Count returns how many documents of index match query.
func (s *Store) Count(ctx context.Context, index string, query *types.Query) (int, error) {
	countBody := map[string]any{"query": filterQuery(query)}
	body, err := json.Marshal(countBody)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch marshal count body: %w", err)
	}
	return s.client.Count(ctx, index, body)
}

// DeleteIndex removes index.
func (s *Store) DeleteIndex(ctx context.Context, index string) error {
	return s.client.DeleteIndex(ctx, index)
}

func (s *Store) buildSearchBody(query *types.Query) *types.SearchRequestBody {
	body := types.NewSearchRequestBody()
	body.Query = filterQuery(query)
	size := s.option.maxResults
	body.Size = &size
	return body
}

// filterQuery wraps query in bool.filter. A nil query matches everything.
func filterQuery(query *types.Query) *types.Query {
	if query == nil {
		return &types.Query{MatchAll: types.NewMatchAllQuery()}
	}
	return &types.Query{Bool: &types.BoolQuery{Filter: []types.Query{*query}}}
}

func parseHits(data []byte) ([]resource.Record, error) {
	var response search.Response
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("elasticsearch unmarshal search response: %w", err)
	}
	records := make([]resource.Record, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		if hit.Id_ == nil {
			continue
		}
		record := resource.Record{}
		if len(hit.Source_) > 0 {
			if err := json.Unmarshal(hit.Source_, &record); err != nil {
				log.Warnf("elasticsearch skip hit %s: %v", *hit.Id_, err)
				continue
			}
		}
		record[resource.IDField] = *hit.Id_
		records = append(records, record)
	}
	return records, nil
}

type indexCreateBody struct {
	Mappings *types.TypeMapping  `json:"mappings,omitempty"`
	Settings *types.IndexSettings `json:"settings,omitempty"`
}

func (s *Store) ensureIndex(ctx context.Context, index string) error {
	exists, err := s.client.IndexExists(ctx, index)
	if err != nil {
		return fmt.Errorf("elasticsearch index exists: %w", err)
	}
	if exists {
		return nil
	}
	body, err := json.Marshal(s.buildIndexCreateBody())
	if err != nil {
		return fmt.Errorf("elasticsearch marshal index create body: %w", err)
	}
	if err := s.client.CreateIndex(ctx, index, body); err != nil {
		return fmt.Errorf("elasticsearch create index %s: %w", index, err)
	}
	log.Debugf("elasticsearch created index %s", index)
	return nil
}

func (s *Store) buildIndexCreateBody() *indexCreateBody {
	tm := types.NewTypeMapping()
	tm.Properties = make(map[string]types.Property, len(s.option.keywordFields))
	for _, f := range s.option.keywordFields {
		tm.Properties[f] = types.NewKeywordProperty()
	}
	is := types.NewIndexSettings()
	shards := "1"
	replicas := "0"
	is.NumberOfShards = &shards
	is.NumberOfReplicas = &replicas
	return &indexCreateBody{Mappings: tm, Settings: is}
}
