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
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
)

// compileFilter turns a MongoDB filter document into a predicate. It
// supports the query operators the filter condition converter produces plus
// $eq, $ne, $exists and the logical operators.
func compileFilter(filter bson.D) (matchFunc, error) {
	fns := make([]matchFunc, 0, len(filter))
	for _, e := range filter {
		fn, err := compileElement(e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return and(fns), nil
}

func compileElement(key string, value any) (matchFunc, error) {
	switch key {
	case "$and", "$or", "$nor":
		return compileLogical(key, value)
	}
	if strings.HasPrefix(key, "$") {
		return nil, fmt.Errorf("unsupported top level operator %s", key)
	}
	ops, ok := operatorDocument(value)
	if !ok {
		return compareEq(key, value), nil
	}
	return compileFieldOperators(key, ops)
}

func compileLogical(op string, value any) (matchFunc, error) {
	items, ok := sliceItems(value)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%s requires a non-empty array", op)
	}
	fns := make([]matchFunc, 0, len(items))
	for _, item := range items {
		doc, ok := asDocument(item)
		if !ok {
			return nil, fmt.Errorf("%s items must be documents: %T", op, item)
		}
		fn, err := compileFilter(doc)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	switch op {
	case "$and":
		return and(fns), nil
	case "$or":
		return or(fns), nil
	default:
		return not(or(fns)), nil
	}
}

func compileFieldOperators(field string, ops bson.D) (matchFunc, error) {
	var options string
	for _, e := range ops {
		if e.Key == "$options" {
			s, ok := e.Value.(string)
			if !ok {
				return nil, fmt.Errorf("$options must be a string: %T", e.Value)
			}
			options = s
		}
	}

	fns := make([]matchFunc, 0, len(ops))
	for _, e := range ops {
		var (
			fn  matchFunc
			err error
		)
		switch e.Key {
		case "$options":
			continue
		case "$eq":
			fn = compareEq(field, e.Value)
		case "$ne":
			fn = not(compareEq(field, e.Value))
		case "$in":
			fn, err = compareIn(field, e.Value)
		case "$nin":
			fn, err = compareIn(field, e.Value)
			if err == nil {
				fn = not(fn)
			}
		case "$exists":
			fn = compareExists(field, e.Value)
		case "$regex":
			fn, err = compareRegex(field, e.Value, options)
		case "$not":
			fn, err = compileNot(field, e.Value)
		default:
			err = fmt.Errorf("unsupported field operator %s", e.Key)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		fns = append(fns, fn)
	}
	return and(fns), nil
}

func compileNot(field string, value any) (matchFunc, error) {
	switch v := value.(type) {
	case primitive.Regex:
		fn, err := compareRegex(field, v, "")
		if err != nil {
			return nil, err
		}
		return not(fn), nil
	default:
		ops, ok := operatorDocument(value)
		if !ok {
			return nil, fmt.Errorf("$not needs a regex or operator document: %T", value)
		}
		fn, err := compileFieldOperators(field, ops)
		if err != nil {
			return nil, err
		}
		return not(fn), nil
	}
}

func compareEq(field string, want any) matchFunc {
	return func(r resource.Record) bool {
		v, ok := fieldValue(r, field)
		if !ok {
			return want == nil
		}
		for _, c := range candidates(v) {
			if equalValues(c, want) {
				return true
			}
		}
		return equalValues(v, want)
	}
}

func compareIn(field string, value any) (matchFunc, error) {
	wants, ok := sliceItems(value)
	if !ok {
		return nil, fmt.Errorf("$in and $nin need an array: %T", value)
	}
	fns := make([]matchFunc, 0, len(wants))
	for _, w := range wants {
		if re, ok := w.(primitive.Regex); ok {
			fn, err := compareRegex(field, re, "")
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
			continue
		}
		fns = append(fns, compareEq(field, w))
	}
	return or(fns), nil
}

func compareExists(field string, value any) matchFunc {
	want := true
	if b, ok := value.(bool); ok {
		want = b
	} else if f, ok := toFloat(value); ok {
		want = f != 0
	}
	return func(r resource.Record) bool {
		_, ok := fieldValue(r, field)
		return ok == want
	}
}

func compareRegex(field string, value any, options string) (matchFunc, error) {
	var pattern string
	switch v := value.(type) {
	case primitive.Regex:
		pattern = v.Pattern
		if options == "" {
			options = v.Options
		}
	case string:
		pattern = v
	default:
		return nil, fmt.Errorf("$regex needs a string or regex: %T", value)
	}
	re, err := compileRegex(pattern, options)
	if err != nil {
		return nil, err
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

// compileRegex maps the MongoDB i, m and s options onto RE2 flags.
func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	var flags string
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			flags += string(o)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return re, nil
}

// operatorDocument reports whether v is a document whose keys are all query
// operators, returning it as an ordered bson.D.
func operatorDocument(v any) (bson.D, bool) {
	doc, ok := asDocument(v)
	if !ok || len(doc) == 0 {
		return nil, false
	}
	for _, e := range doc {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return doc, true
}

func asDocument(v any) (bson.D, bool) {
	switch d := v.(type) {
	case bson.D:
		return d, true
	case bson.M:
		return sortedDocument(d), true
	case map[string]any:
		return sortedDocument(d), true
	}
	return nil, false
}

func sortedDocument(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	doc := make(bson.D, 0, len(m))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: m[k]})
	}
	return doc
}
