//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

// Package mongo translates filter conditions into MongoDB query fragments.
package mongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition"
)

// MongoDB query operators produced by the converter.
const (
	OperatorIn    = "$in"
	OperatorNotIn = "$nin"
	OperatorRegex = "$regex"
	OperatorNot   = "$not"
)

// regexOptions makes every generated pattern case insensitive.
const regexOptions = "i"

var _ filtercondition.Converter[bson.D] = (*Converter)(nil)

// Converter converts a filter condition to a MongoDB filter document.
type Converter struct{}

// NewConverter returns a MongoDB converter.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert builds {field: {operator: value}} for cond.
func (c *Converter) Convert(cond *filtercondition.FilterCondition) (bson.D, error) {
	if cond == nil {
		return nil, fmt.Errorf("nil condition")
	}
	if cond.Field == "" {
		return nil, filtercondition.ErrEmptyField
	}
	op, err := OperatorToDocumentOperator(cond.Operator)
	if err != nil {
		return nil, err
	}
	value, err := OperatorToDocumentValue(cond.Operator, cond.Value)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: cond.Field, Value: bson.D{{Key: op, Value: value}}}}, nil
}

// OperatorToDocumentOperator maps a filter operator to its MongoDB operator.
func OperatorToDocumentOperator(op filtercondition.Operator) (string, error) {
	switch op {
	case filtercondition.OperatorIn:
		return OperatorIn, nil
	case filtercondition.OperatorNotIn:
		return OperatorNotIn, nil
	case filtercondition.OperatorLike, filtercondition.OperatorStartsWith, filtercondition.OperatorEndsWith:
		return OperatorRegex, nil
	case filtercondition.OperatorNotLike:
		return OperatorNot, nil
	default:
		return "", fmt.Errorf("%w: %q", filtercondition.ErrInvalidOperator, op)
	}
}

// OperatorToDocumentValue coerces the raw value for the MongoDB operator that op maps to.
// List operators yield a bson.A, pattern operators a case insensitive primitive.Regex.
func OperatorToDocumentValue(op filtercondition.Operator, value string) (any, error) {
	switch op {
	case filtercondition.OperatorIn, filtercondition.OperatorNotIn:
		return bson.A(filtercondition.SplitValues(value)), nil
	case filtercondition.OperatorLike, filtercondition.OperatorNotLike:
		return primitive.Regex{Pattern: ".*" + regexp.QuoteMeta(value) + ".*", Options: regexOptions}, nil
	case filtercondition.OperatorStartsWith:
		return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value), Options: regexOptions}, nil
	case filtercondition.OperatorEndsWith:
		return primitive.Regex{Pattern: ".*" + regexp.QuoteMeta(value) + "$", Options: regexOptions}, nil
	default:
		return nil, fmt.Errorf("%w: %q", filtercondition.ErrInvalidOperator, op)
	}
}
