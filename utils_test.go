package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1h2m3s", HumanDuration(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "45s", HumanDuration(45*time.Second+10*time.Millisecond))
	assert.Equal(t, "250ms", HumanDuration(250*time.Millisecond))
}

func TestParseWhere(t *testing.T) {
	where, err := ParseWhere("")
	require.NoError(t, err)
	assert.Nil(t, where)

	where, err = ParseWhere(`{"title":"abc","score":{"$gte":10}}`)
	require.NoError(t, err)
	assert.Equal(t, "abc", where["title"])
	assert.Equal(t, map[string]any{"$gte": float64(10)}, where["score"])

	_, err = ParseWhere(`[1,2]`)
	assert.Error(t, err)
}

func TestSampleRecords(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	records := sampleRecords(4, now)

	require.Len(t, records, 4)
	assert.Equal(t, "Sample record 1", records[0].Title)
	assert.NotEmpty(t, records[0].Note)
	assert.Empty(t, records[1].Note)
	assert.NotEmpty(t, records[3].Note)
	assert.True(t, records[3].CreatedAt.After(records[2].CreatedAt))
}
