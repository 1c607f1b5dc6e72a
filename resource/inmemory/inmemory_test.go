//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package inmemory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition"
	"trpc.group/trpc-go/trpc-publish-filter-go/filtercondition/translator"
	"trpc.group/trpc-go/trpc-publish-filter-go/resource"
	"trpc.group/trpc-go/trpc-publish-filter-go/resource/inmemory"
)

const collection = "stories"

// newFixture builds a fresh store and service holding the publishing records
// used by the filter scenarios.
func newFixture(t *testing.T) *resource.Service {
	t.Helper()
	store := inmemory.New()
	svc, err := resource.New(store, resource.WithSearchStore(store))
	require.NoError(t, err)
	require.NoError(t, svc.Insert(context.Background(), collection, []resource.Record{
		{"_id": 1, "headline": "story"},
		{"_id": 2, "headline": "prtorque"},
		{"_id": 3, "urgency": 3},
		{"_id": 4, "urgency": 4},
		{"_id": 5, "urgency": 2},
		{"_id": 6},
	}))
	return svc
}

func TestDocumentScenarios(t *testing.T) {
	tests := []struct {
		name string
		cond filtercondition.FilterCondition
		want []any
	}{
		{
			name: "like exact word",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorLike, Value: "story"},
			want: []any{1},
		},
		{
			name: "like substring",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorLike, Value: "tor"},
			want: []any{1, 2},
		},
		{
			name: "startswith ignores case",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorStartsWith, Value: "Sto"},
			want: []any{1},
		},
		{
			name: "endswith ignores case",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorEndsWith, Value: "Que"},
			want: []any{2},
		},
		{
			name: "notlike keeps records without the field",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorNotLike, Value: "Que"},
			want: []any{1, 3, 4, 5, 6},
		},
		{
			name: "in coerces numbers",
			cond: filtercondition.FilterCondition{Field: "urgency", Operator: filtercondition.OperatorIn, Value: "3,4"},
			want: []any{3, 4},
		},
		{
			name: "nin keeps records without the field",
			cond: filtercondition.FilterCondition{Field: "urgency", Operator: filtercondition.OperatorNotIn, Value: "2,3,4"},
			want: []any{1, 2, 6},
		},
	}
	tr := translator.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFixture(t)
			translation, err := tr.TranslateToDocumentQuery(tt.cond)
			require.NoError(t, err)

			cursor, err := svc.GetFromMongo(context.Background(), collection, translation.Mongo)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cursor.IDs())
		})
	}
}

func TestSearchScenarios(t *testing.T) {
	tests := []struct {
		name string
		cond filtercondition.FilterCondition
		want []any
	}{
		{
			name: "in",
			cond: filtercondition.FilterCondition{Field: "urgency", Operator: filtercondition.OperatorIn, Value: "3,4"},
			want: []any{3, 4},
		},
		{
			name: "nin",
			cond: filtercondition.FilterCondition{Field: "urgency", Operator: filtercondition.OperatorNotIn, Value: "2,3,4"},
			want: []any{1, 2, 6},
		},
		{
			name: "like",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorLike, Value: "TOR"},
			want: []any{1, 2},
		},
		{
			name: "notlike",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorNotLike, Value: "Que"},
			want: []any{1, 3, 4, 5, 6},
		},
		{
			name: "startswith",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorStartsWith, Value: "Sto"},
			want: []any{1},
		},
		{
			name: "endswith",
			cond: filtercondition.FilterCondition{Field: "headline", Operator: filtercondition.OperatorEndsWith, Value: "Que"},
			want: []any{2},
		},
	}
	tr := translator.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFixture(t)
			translation, err := tr.TranslateToSearchQuery(tt.cond)
			require.NoError(t, err)

			cursor, err := svc.Get(context.Background(), collection, translation.Elastic)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, cursor.IDs())
		})
	}
}

func TestStore_Insert(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()

	stored, err := store.Insert(ctx, collection, []resource.Record{{"headline": "no id"}})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	id, ok := stored[0].ID().(string)
	require.True(t, ok)
	assert.Len(t, id, 36)

	_, err = store.Insert(ctx, collection, []resource.Record{{"_id": id}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = store.Insert(ctx, collection, []resource.Record{nil})
	assert.Error(t, err)

	stored[0]["headline"] = "changed"
	all, err := store.Find(ctx, collection, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "no id", all[0]["headline"])
}

func TestStore_IndexReplaces(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	require.NoError(t, store.Index(ctx, "idx", []resource.Record{{"_id": "a", "v": 1}, {"_id": "b", "v": 2}}))
	require.NoError(t, store.Index(ctx, "idx", []resource.Record{{"_id": "a", "v": 3}}))

	got, err := store.Search(ctx, "idx", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0]["v"])

	assert.Error(t, store.Index(ctx, "idx", []resource.Record{{"v": 4}}))

	store.Drop("idx")
	got, err = store.Search(ctx, "idx", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
