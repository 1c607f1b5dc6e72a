//
// Tencent is pleased to support the open source community by making trpc-publish-filter-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-publish-filter-go is licensed under the Apache License Version 2.0.
//
//

package resource

// Cursor is an ordered, read-only result set.
type Cursor struct {
	records []Record
}

// NewCursor wraps records. The slice is not copied.
func NewCursor(records []Record) *Cursor {
	return &Cursor{records: records}
}

// Count returns the number of records.
func (c *Cursor) Count() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// At returns the i-th record, or nil when i is out of range.
func (c *Cursor) At(i int) Record {
	if c == nil || i < 0 || i >= len(c.records) {
		return nil
	}
	return c.records[i]
}

// Records returns a copy of the record slice.
func (c *Cursor) Records() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// IDs returns the identifier of every record in order.
func (c *Cursor) IDs() []any {
	if c == nil {
		return nil
	}
	ids := make([]any, 0, len(c.records))
	for _, r := range c.records {
		ids = append(ids, r.ID())
	}
	return ids
}
