//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition"
)

func TestOperatorToDocumentOperator(t *testing.T) {
	tests := []struct {
		op   filtercondition.Operator
		want string
	}{
		{filtercondition.OperatorIn, "$in"},
		{filtercondition.OperatorNotIn, "$nin"},
		{filtercondition.OperatorLike, "$regex"},
		{filtercondition.OperatorNotLike, "$not"},
		{filtercondition.OperatorStartsWith, "$regex"},
		{filtercondition.OperatorEndsWith, "$regex"},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			got, err := OperatorToDocumentOperator(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := OperatorToDocumentOperator("eq")
	require.ErrorIs(t, err, filtercondition.ErrInvalidOperator)
}

func TestOperatorToDocumentValue(t *testing.T) {
	tests := []struct {
		name  string
		op    filtercondition.Operator
		value string
		want  any
	}{
		{name: "in list", op: filtercondition.OperatorIn, value: "1,2", want: bson.A{1, 2}},
		// nin coerces like in; older callers saw ["3"] here.
		{name: "nin single", op: filtercondition.OperatorNotIn, value: "3", want: bson.A{3}},
		{name: "nin strings", op: filtercondition.OperatorNotIn, value: "sport,finance", want: bson.A{"sport", "finance"}},
		{name: "like", op: filtercondition.OperatorLike, value: "test", want: primitive.Regex{Pattern: ".*test.*", Options: "i"}},
		{name: "notlike", op: filtercondition.OperatorNotLike, value: "test", want: primitive.Regex{Pattern: ".*test.*", Options: "i"}},
		{name: "startswith", op: filtercondition.OperatorStartsWith, value: "test", want: primitive.Regex{Pattern: "^test", Options: "i"}},
		{name: "endswith", op: filtercondition.OperatorEndsWith, value: "test", want: primitive.Regex{Pattern: ".*test$", Options: "i"}},
		{name: "metacharacters escaped", op: filtercondition.OperatorLike, value: "a.b(c)", want: primitive.Regex{Pattern: `.*a\.b\(c\).*`, Options: "i"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OperatorToDocumentValue(tt.op, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := OperatorToDocumentValue("between", "1")
	require.ErrorIs(t, err, filtercondition.ErrInvalidOperator)
}

func TestConverter_Convert(t *testing.T) {
	c := NewConverter()

	got, err := c.Convert(&filtercondition.FilterCondition{Field: "urgency", Operator: filtercondition.OperatorIn, Value: "3,4"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "urgency", Value: bson.D{{Key: "$in", Value: bson.A{3, 4}}}}}, got)

	got, err = c.Convert(&filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorNotLike, Value: "Que"})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "headline", Value: bson.D{{Key: "$not", Value: primitive.Regex{Pattern: ".*Que.*", Options: "i"}}}}}, got)

	raw, err := bson.MarshalExtJSON(got, false, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"headline":{"$not":{"$regularExpression":{"pattern":".*Que.*","options":"i"}}}}`, string(raw))

	_, err = c.Convert(nil)
	require.Error(t, err)
	_, err = c.Convert(&filtercondition.FilterCondition{Operator: filtercondition.OperatorIn, Value: "1"})
	require.ErrorIs(t, err, filtercondition.ErrEmptyField)
	_, err = c.Convert(&filtercondition.FilterCondition{Field: "urgency", Operator: "gt", Value: "1"})
	require.ErrorIs(t, err, filtercondition.ErrInvalidOperator)
}
