//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package elasticsearch

import "net/http"

func init() {
	esRegistry = make(map[string][]ClientBuilderOpt)
}

// esRegistry stores named Elasticsearch instance builder options.
var esRegistry map[string][]ClientBuilderOpt

type clientBuilder func(builderOpts ...ClientBuilderOpt) (Client, error)

var globalBuilder clientBuilder = defaultClientBuilder

// SetClientBuilder sets the global Elasticsearch client builder.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

// GetClientBuilder gets the global Elasticsearch client builder.
func GetClientBuilder() clientBuilder {
	return globalBuilder
}

// RegisterElasticsearchInstance registers a named Elasticsearch instance options.
func RegisterElasticsearchInstance(name string, opts ...ClientBuilderOpt) {
	esRegistry[name] = append(esRegistry[name], opts...)
}

// GetElasticsearchInstance gets the registered options for a named instance.
func GetElasticsearchInstance(name string) ([]ClientBuilderOpt, bool) {
	if _, ok := esRegistry[name]; !ok {
		return nil, false
	}
	return esRegistry[name], true
}

// ClientBuilderOpt is the option for the Elasticsearch client builder.
type ClientBuilderOpt func(*ClientBuilderOpts)

// ClientBuilderOpts is the options for the Elasticsearch client builder.
type ClientBuilderOpts struct {
	// Addresses is the list of Elasticsearch node addresses.
	Addresses []string
	// Username is the username for authentication.
	Username string
	// Password is the password for authentication.
	Password string
	// APIKey is the API key for authentication.
	APIKey string
	// CertificateFingerprint is the certificate fingerprint for authentication.
	CertificateFingerprint string
	// CompressRequestBody is the flag to enable request body compression.
	CompressRequestBody bool
	// RetryOnStatus is the list of status codes to retry on.
	RetryOnStatus []int
	// MaxRetries is the maximum number of retries.
	MaxRetries int
	// Transport replaces the HTTP transport of the SDK client.
	Transport http.RoundTripper

	// ExtraOptions allows custom builders to accept extra parameters.
	ExtraOptions []any
}

// WithAddresses sets node addresses.
func WithAddresses(addresses []string) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.Addresses = addresses }
}

// WithUsername sets username.
func WithUsername(username string) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.Username = username }
}

// WithPassword sets password.
func WithPassword(password string) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.Password = password }
}

// WithAPIKey sets API key.
func WithAPIKey(apiKey string) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.APIKey = apiKey }
}

// WithCertificateFingerprint sets TLS certificate fingerprint.
func WithCertificateFingerprint(fp string) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.CertificateFingerprint = fp }
}

// WithCompressRequestBody toggles request body compression.
func WithCompressRequestBody(enabled bool) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.CompressRequestBody = enabled }
}

// WithRetryOnStatus sets HTTP retry status codes.
func WithRetryOnStatus(codes []int) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.RetryOnStatus = codes }
}

// WithMaxRetries sets max retries.
func WithMaxRetries(n int) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.MaxRetries = n }
}

// WithTransport sets the HTTP transport.
func WithTransport(rt http.RoundTripper) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.Transport = rt }
}

// WithExtraOptions adds extra, builder-specific options.
func WithExtraOptions(extraOptions ...any) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.ExtraOptions = append(opts.ExtraOptions, extraOptions...)
	}
}
