//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"testing"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
)

func TestCompileQuery(t *testing.T) {
	record := resource.Record{
		"_id":      "a",
		"headline": "Breaking News",
		"urgency":  float64(3),
	}
	yes := true
	prefix := "break*"
	tests := []struct {
		name  string
		query *types.Query
		want  bool
	}{
		{name: "nil", query: nil, want: true},
		{name: "match all", query: &types.Query{MatchAll: &types.MatchAllQuery{}}, want: true},
		{
			name: "terms across numeric types",
			query: &types.Query{Terms: &types.TermsQuery{TermsQuery: map[string]types.TermsQueryField{
				"urgency": []any{2, 3},
			}}},
			want: true,
		},
		{
			name: "terms typed values",
			query: &types.Query{Terms: &types.TermsQuery{TermsQuery: map[string]types.TermsQueryField{
				"headline": []types.FieldValue{"x", "y"},
			}}},
			want: false,
		},
		{name: "term", query: &types.Query{Term: map[string]types.TermQuery{"urgency": {Value: 3}}}, want: true},
		{
			name:  "term case insensitive",
			query: &types.Query{Term: map[string]types.TermQuery{"headline": {Value: "breaking news", CaseInsensitive: &yes}}},
			want:  true,
		},
		{name: "regexp is anchored", query: &types.Query{Regexp: map[string]types.RegexpQuery{"headline": {Value: "News"}}}, want: false},
		{name: "regexp contains", query: &types.Query{Regexp: map[string]types.RegexpQuery{"headline": {Value: ".*News.*"}}}, want: true},
		{name: "prefix case sensitive", query: &types.Query{Prefix: map[string]types.PrefixQuery{"headline": {Value: "break"}}}, want: false},
		{name: "prefix case insensitive", query: &types.Query{Prefix: map[string]types.PrefixQuery{"headline": {Value: "break", CaseInsensitive: &yes}}}, want: true},
		{name: "wildcard", query: &types.Query{Wildcard: map[string]types.WildcardQuery{"headline": {Value: &prefix, CaseInsensitive: &yes}}}, want: true},
		{
			name: "bool must not",
			query: &types.Query{Bool: &types.BoolQuery{MustNot: []types.Query{
				{Term: map[string]types.TermQuery{"urgency": {Value: 3}}},
			}}},
			want: false,
		},
		{
			name: "bool should",
			query: &types.Query{Bool: &types.BoolQuery{Should: []types.Query{
				{Term: map[string]types.TermQuery{"urgency": {Value: 1}}},
				{Term: map[string]types.TermQuery{"urgency": {Value: 3}}},
			}}},
			want: true,
		},
		{
			name: "bool filter",
			query: &types.Query{Bool: &types.BoolQuery{Filter: []types.Query{
				{Term: map[string]types.TermQuery{"missing": {Value: 1}}},
			}}},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := compileQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, match(record))
		})
	}
}

func TestCompileQuery_Errors(t *testing.T) {
	_, err := compileQuery(&types.Query{})
	assert.Error(t, err)

	_, err = compileQuery(&types.Query{Wildcard: map[string]types.WildcardQuery{"f": {}}})
	assert.Error(t, err)

	_, err = compileQuery(&types.Query{Regexp: map[string]types.RegexpQuery{"f": {Value: "("}}})
	assert.Error(t, err)

	_, err = compileQuery(&types.Query{Terms: &types.TermsQuery{TermsQuery: map[string]types.TermsQueryField{"f": "x"}}})
	assert.Error(t, err)
}

func Test_wildcardToRegexp(t *testing.T) {
	assert.Equal(t, "^.*que$", wildcardToRegexp("*que"))
	assert.Equal(t, "^a.b$", wildcardToRegexp("a?b"))
	assert.Equal(t, `^a\*b$`, wildcardToRegexp(`a\*b`))
	assert.Equal(t, `^a\.b.*$`, wildcardToRegexp("a.b*"))
}
