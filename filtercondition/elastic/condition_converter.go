//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package elastic translates filter conditions into Elasticsearch query fragments.
package elastic

import (
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"

	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition"
)

var _ filtercondition.Converter[*types.Query] = (*Converter)(nil)

// Converter converts a filter condition to an Elasticsearch query filter.
type Converter struct{}

// NewConverter returns an Elasticsearch converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert converts a filter condition to an Elasticsearch query filter.
func (c *Converter) Convert(cond *filtercondition.FilterCondition) (*types.Query, error) {
	if cond == nil {
		return nil, fmt.Errorf("nil condition")
	}
	if cond.Field == "" {
		return nil, filtercondition.ErrEmptyField
	}

	switch cond.Operator {
	case filtercondition.OperatorIn:
		return c.buildTerms(cond), nil
	case filtercondition.OperatorNotIn:
		return mustNot(c.buildTerms(cond)), nil
	case filtercondition.OperatorLike:
		return c.buildContains(cond), nil
	case filtercondition.OperatorNotLike:
		return mustNot(c.buildContains(cond)), nil
	case filtercondition.OperatorStartsWith:
		return c.buildPrefix(cond), nil
	case filtercondition.OperatorEndsWith:
		return c.buildSuffix(cond), nil
	default:
		return nil, fmt.Errorf("%w: %q", filtercondition.ErrInvalidOperator, cond.Operator)
	}
}

func (c *Converter) buildTerms(cond *filtercondition.FilterCondition) *types.Query {
	return &types.Query{
		Terms: &types.TermsQuery{
			TermsQuery: map[string]types.TermsQueryField{
				cond.Field: filtercondition.SplitValues(cond.Value),
			},
		},
	}
}

func (c *Converter) buildContains(cond *filtercondition.FilterCondition) *types.Query {
	return &types.Query{
		Regexp: map[string]types.RegexpQuery{
			cond.Field: {
				Value:           ".*" + escapeRegexp(cond.Value) + ".*",
				CaseInsensitive: boolPtr(true),
			},
		},
	}
}

func (c *Converter) buildPrefix(cond *filtercondition.FilterCondition) *types.Query {
	return &types.Query{
		Prefix: map[string]types.PrefixQuery{
			cond.Field: {
				Value:           cond.Value,
				CaseInsensitive: boolPtr(true),
			},
		},
	}
}

func (c *Converter) buildSuffix(cond *filtercondition.FilterCondition) *types.Query {
	pattern := "*" + escapeWildcard(cond.Value)
	return &types.Query{
		Wildcard: map[string]types.WildcardQuery{
			cond.Field: {
				Value:           &pattern,
				CaseInsensitive: boolPtr(true),
			},
		},
	}
}

func mustNot(q *types.Query) *types.Query {
	return &types.Query{
		Bool: &types.BoolQuery{
			MustNot: []types.Query{*q},
		},
	}
}

// luceneRegexpReserved holds the characters with a meaning in Lucene regular expressions.
const luceneRegexpReserved = `.?+*|{}[]()"\#@&<>~`

func escapeRegexp(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(luceneRegexpReserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}

func boolPtr(b bool) *bool {
	return &b
}
