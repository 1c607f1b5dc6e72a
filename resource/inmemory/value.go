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
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
)

type matchFunc func(r resource.Record) bool

func matchAll(resource.Record) bool { return true }

func and(fns []matchFunc) matchFunc {
	if len(fns) == 0 {
		return matchAll
	}
	if len(fns) == 1 {
		return fns[0]
	}
	return func(r resource.Record) bool {
		for _, fn := range fns {
			if !fn(r) {
				return false
			}
		}
		return true
	}
}

func or(fns []matchFunc) matchFunc {
	return func(r resource.Record) bool {
		for _, fn := range fns {
			if fn(r) {
				return true
			}
		}
		return false
	}
}

func not(fn matchFunc) matchFunc {
	return func(r resource.Record) bool { return !fn(r) }
}

// fieldValue resolves a dotted path inside r.
func fieldValue(r resource.Record, path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		next, ok := child(cur, part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		c, ok := m[key]
		return c, ok
	case resource.Record:
		c, ok := m[key]
		return c, ok
	case primitive.M:
		c, ok := m[key]
		return c, ok
	case primitive.D:
		for _, e := range m {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}

// candidates returns the values a field comparison is applied to: the
// elements of an array field, or the value itself.
func candidates(v any) []any {
	switch v.(type) {
	case string, []byte, nil:
		return []any{v}
	}
	if items, ok := sliceItems(v); ok {
		return items
	}
	return []any{v}
}

func sliceItems(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case bson.A:
		return s, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// equalValues compares numbers by value regardless of their Go type.
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
