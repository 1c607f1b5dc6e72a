//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package filtercondition defines the filter condition model shared by the
// document store and search index translators.
package filtercondition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Operator is the comparison applied by a filter condition.
type Operator string

const (
	// OperatorIn matches records whose field is one of the listed values.
	OperatorIn Operator = "in"

	// OperatorNotIn matches records whose field is none of the listed values.
	OperatorNotIn Operator = "nin"

	// OperatorLike matches records whose field contains the value.
	OperatorLike Operator = "like"

	// OperatorNotLike matches records whose field does not contain the value.
	OperatorNotLike Operator = "notlike"

	// OperatorStartsWith matches records whose field starts with the value.
	OperatorStartsWith Operator = "startswith"

	// OperatorEndsWith matches records whose field ends with the value.
	OperatorEndsWith Operator = "endswith"
)

// Operators lists every recognised operator.
var Operators = []Operator{
	OperatorIn,
	OperatorNotIn,
	OperatorLike,
	OperatorNotLike,
	OperatorStartsWith,
	OperatorEndsWith,
}

var (
	// ErrInvalidOperator is returned for an operator outside Operators.
	ErrInvalidOperator = errors.New("filtercondition: invalid operator")

	// ErrEmptyField is returned when a condition names no field.
	ErrEmptyField = errors.New("filtercondition: field is empty")

	// ErrEmptyValue is returned when a condition carries no value.
	ErrEmptyValue = errors.New("filtercondition: value is empty")

	// ErrEmptyItem is returned when a list value holds an empty item, e.g. "3,".
	ErrEmptyItem = errors.New("filtercondition: list value has an empty item")

	// ErrSimilarCondition is returned by CheckSimilar when an equivalent condition exists.
	ErrSimilarCondition = errors.New("filtercondition: similar condition exists")
)

// ParseOperator returns the Operator named by s.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
	}
	return op, nil
}

// Valid reports whether op is one of the recognised operators.
func (op Operator) Valid() bool {
	switch op {
	case OperatorIn, OperatorNotIn, OperatorLike, OperatorNotLike,
		OperatorStartsWith, OperatorEndsWith:
		return true
	}
	return false
}

// IsList reports whether op interprets its value as a comma separated list.
func (op Operator) IsList() bool {
	return op == OperatorIn || op == OperatorNotIn
}

// FilterCondition is a single {field, operator, value} rule used to select records.
type FilterCondition struct {
	// ID identifies a stored condition. Empty for ad-hoc conditions.
	ID string `json:"_id,omitempty" yaml:"id,omitempty"`

	// Name is the editor facing label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Field is the record field to filter on, e.g. "headline" or "urgency".
	Field string `json:"field" yaml:"field"`

	// Operator is the comparison to apply.
	Operator Operator `json:"operator" yaml:"operator"`

	// Value is the raw value. For in and nin it is a comma separated list.
	Value string `json:"value" yaml:"value"`
}

// Validate checks that the condition can be translated.
func (c *FilterCondition) Validate() error {
	if c == nil {
		return errors.New("filtercondition: nil condition")
	}
	if strings.TrimSpace(c.Field) == "" {
		return ErrEmptyField
	}
	if _, err := ParseOperator(string(c.Operator)); err != nil {
		return err
	}
	if c.Value == "" {
		return ErrEmptyValue
	}
	if c.Operator.IsList() {
		for i, item := range SplitValues(c.Value) {
			if item == "" {
				return fmt.Errorf("%w: position %d in %q", ErrEmptyItem, i, c.Value)
			}
		}
	}
	return nil
}

// SplitValues splits a list value on commas. Items that parse as base 10
// integers become int, the rest stay string. Order is preserved and a value
// without commas yields a single item list. Coercion does not depend on the
// operator, so "3" gives [3] for nin as well as for in; earlier releases kept
// nin items as strings.
func SplitValues(value string) []any {
	parts := strings.Split(value, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if n, err := strconv.Atoi(item); err == nil {
			values = append(values, n)
			continue
		}
		values = append(values, item)
	}
	return values
}

// Converter converts a filter condition to a backend specific query fragment.
type Converter[T any] interface {
	// Convert converts a filter condition to a specific query format.
	Convert(cond *FilterCondition) (T, error)
}
