package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordToColumns(t *testing.T) {
	// Arranging
	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	withNote := &Record{ID: "7", Title: "a", Note: "n", CreatedAt: now}
	withoutNote := &Record{ID: "8", Title: "b", CreatedAt: now}

	// Acting
	cols := withNote.GetColumns()
	values := withNote.ToColumns(cols)
	empty := withoutNote.ToColumns(cols)

	// Asserting
	assert.Equal(t, []string{"title", "note", "created_at"}, cols)
	assert.Equal(t, []interface{}{"a", "n", now}, values)
	assert.Equal(t, []interface{}{"b", nil, now}, empty)
}
