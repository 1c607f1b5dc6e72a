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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// conditionFile is the YAML layout read by LoadConditions.
//
//	conditions:
//	  - id: urgent
//	    field: urgency
//	    operator: in
//	    value: "1,2"
type conditionFile struct {
	Conditions []FilterCondition `yaml:"conditions"`
}

// LoadConditions reads filter conditions from YAML. Every condition is
// validated and two similar conditions in the same document are rejected.
func LoadConditions(r io.Reader) ([]FilterCondition, error) {
	var f conditionFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("filtercondition: decode conditions: %w", err)
	}

	conds := make([]FilterCondition, 0, len(f.Conditions))
	for i := range f.Conditions {
		c := f.Conditions[i]
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		if err := CheckSimilar(conds, c); err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		conds = append(conds, c)
	}
	return conds, nil
}

// LoadConditionsFile reads filter conditions from the YAML file at path.
func LoadConditionsFile(path string) ([]FilterCondition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()
	return LoadConditions(file)
}

// LoadConditionsGlob reads every YAML file under root matching pattern,
// e.g. "**/*.yaml", in lexical order. Conditions must be unique across files.
func LoadConditionsGlob(root, pattern string) ([]FilterCondition, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("searching condition files with pattern '%s': %w", pattern, err)
	}
	sort.Strings(matches)

	var all []FilterCondition
	for _, match := range matches {
		path := filepath.Join(root, filepath.FromSlash(match))
		conds, err := LoadConditionsFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", match, err)
		}
		for _, c := range conds {
			if err := CheckSimilar(all, c); err != nil {
				return nil, fmt.Errorf("%s: %w", match, err)
			}
			all = append(all, c)
		}
	}
	return all, nil
}
