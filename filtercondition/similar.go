//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package filtercondition

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
)

// CheckSimilar returns ErrSimilarCondition when existing holds a condition,
// other than cand itself, with the same field, operator and an equivalent value.
// List values are compared as sets of coerced items. Pattern values match
// case-insensitively, so they are compared case folded.
func CheckSimilar(existing []FilterCondition, cand FilterCondition) error {
	for _, c := range existing {
		if cand.ID != "" && c.ID == cand.ID {
			continue
		}
		if c.Field != cand.Field || c.Operator != cand.Operator {
			continue
		}
		if sameValue(cand.Operator, c.Value, cand.Value) {
			name := c.Name
			if name == "" {
				name = c.ID
			}
			return fmt.Errorf("%w: %s", ErrSimilarCondition, name)
		}
	}
	return nil
}

func sameValue(op Operator, a, b string) bool {
	if !op.IsList() {
		fold := cases.Fold()
		return fold.String(a) == fold.String(b)
	}
	return equalSets(valueKeys(a), valueKeys(b))
}

func valueKeys(value string) []string {
	items := SplitValues(value)
	keys := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := fmt.Sprintf("%T:%v", item, item)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
