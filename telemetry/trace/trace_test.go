//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracesEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "custom-trace:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "generic-endpoint:4317")
	assert.Equal(t, "custom-trace:4317", tracesEndpoint("grpc"))

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	assert.Equal(t, "generic-endpoint:4317", tracesEndpoint("grpc"))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", tracesEndpoint("grpc"))
	assert.Equal(t, "localhost:4318", tracesEndpoint("http"))
}

func TestParseEndpointURL(t *testing.T) {
	tests := []struct {
		in       string
		endpoint string
		path     string
		wantErr  bool
	}{
		{in: "http://localhost:3000/api/public/otel", endpoint: "localhost:3000", path: "/api/public/otel"},
		{in: "collector:4318", endpoint: "collector:4318", path: "/"},
		{in: "https://otel.example.com/v1/traces", endpoint: "otel.example.com", path: "/v1/traces"},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			endpoint, path, err := parseEndpointURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestStartAndClean(t *testing.T) {
	old := Tracer
	defer func() { Tracer = old }()

	clean, err := Start(context.Background(), WithEndpoint("localhost:4317"), WithServiceName("publish-filter-test"))
	require.NoError(t, err)
	require.NotNil(t, clean)
	_ = clean() // no collector is running in tests

	clean, err = Start(context.Background(),
		WithProtocol("http"),
		WithEndpointURL("http://localhost:4318/v1/traces"),
		WithHeaders(map[string]string{"Authorization": "Basic x"}),
	)
	require.NoError(t, err)
	_ = clean()
}
