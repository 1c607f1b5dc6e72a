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
	"fmt"
	"regexp"
	"strings"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"

	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
)

// compileQuery turns an Elasticsearch query into a predicate. Leaf queries
// compare against the whole field value, as on a keyword field.
func compileQuery(q *types.Query) (matchFunc, error) {
	if q == nil {
		return matchAll, nil
	}
	var fns []matchFunc
	if q.MatchAll != nil {
		fns = append(fns, matchAll)
	}
	if q.Bool != nil {
		fn, err := compileBool(q.Bool)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	if q.Terms != nil {
		for field, values := range q.Terms.TermsQuery {
			fn, err := compileTerms(field, values)
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		}
	}
	for field, t := range q.Term {
		fns = append(fns, compileTerm(field, t))
	}
	for field, rq := range q.Regexp {
		fn, err := compileLucenePattern(field, "^(?:"+rq.Value+")$", isTrue(rq.CaseInsensitive))
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	for field, pq := range q.Prefix {
		fn, err := compileLucenePattern(field, "^"+regexp.QuoteMeta(pq.Value), isTrue(pq.CaseInsensitive))
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	for field, wq := range q.Wildcard {
		pattern := wq.Value
		if pattern == nil {
			pattern = wq.Wildcard
		}
		if pattern == nil {
			return nil, fmt.Errorf("wildcard on %s has no pattern", field)
		}
		fn, err := compileLucenePattern(field, wildcardToRegexp(*pattern), isTrue(wq.CaseInsensitive))
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		return nil, fmt.Errorf("unsupported search query")
	}
	return and(fns), nil
}

func compileBool(b *types.BoolQuery) (matchFunc, error) {
	var fns []matchFunc
	for _, group := range [][]types.Query{b.Must, b.Filter} {
		for i := range group {
			fn, err := compileQuery(&group[i])
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		}
	}
	for i := range b.MustNot {
		fn, err := compileQuery(&b.MustNot[i])
		if err != nil {
			return nil, err
		}
		fns = append(fns, not(fn))
	}
	if len(b.Should) > 0 {
		should := make([]matchFunc, 0, len(b.Should))
		for i := range b.Should {
			fn, err := compileQuery(&b.Should[i])
			if err != nil {
				return nil, err
			}
			should = append(should, fn)
		}
		// should clauses only filter when nothing else is required
		if len(b.Must) == 0 && len(b.Filter) == 0 {
			fns = append(fns, or(should))
		}
	}
	return and(fns), nil
}

func compileTerms(field string, values types.TermsQueryField) (matchFunc, error) {
	items, ok := sliceItems(values)
	if !ok {
		return nil, fmt.Errorf("terms on %s needs an array of values: %T", field, values)
	}
	return func(r resource.Record) bool {
		v, ok := fieldValue(r, field)
		if !ok {
			return false
		}
		for _, c := range candidates(v) {
			for _, want := range items {
				if equalValues(c, want) {
					return true
				}
			}
		}
		return false
	}, nil
}

func compileTerm(field string, t types.TermQuery) matchFunc {
	fold := isTrue(t.CaseInsensitive)
	return func(r resource.Record) bool {
		v, ok := fieldValue(r, field)
		if !ok {
			return false
		}
		for _, c := range candidates(v) {
			if fold {
				cs, ok1 := c.(string)
				ws, ok2 := t.Value.(string)
				if ok1 && ok2 && strings.EqualFold(cs, ws) {
					return true
				}
			}
			if equalValues(c, t.Value) {
				return true
			}
		}
		return false
	}
}

func compileLucenePattern(field, pattern string, caseInsensitive bool) (matchFunc, error) {
	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern on %s: %w", field, err)
	}
	return func(r resource.Record) bool {
		v, ok := fieldValue(r, field)
		if !ok {
			return false
		}
		for _, c := range candidates(v) {
			if s, ok := c.(string); ok && re.MatchString(s) {
				return true
			}
		}
		return false
	}, nil
}

// wildcardToRegexp converts a wildcard pattern, where * matches any sequence,
// ? any single character and \ escapes the next one.
func wildcardToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*':
			b.WriteString(".*")
		case r == '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
