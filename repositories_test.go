package main

import (
	"context"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/duke605/parse-loader/loader"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *RecordsRepo {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, goose.SetDialect("sqlite3"))
	goose.SetBaseFS(migrationFS)
	require.NoError(t, goose.Up(db.DB, "migrations/sqlite3"))

	return NewRecordsRepo(db, sq.Question)
}

func TestInsertManyAndCount(t *testing.T) {
	// Arranging
	repo := newTestRepo(t)
	ctx := context.Background()

	// Acting
	require.NoError(t, repo.InsertMany(ctx, sampleRecords(7, time.Now())))
	require.NoError(t, repo.InsertMany(ctx, nil))
	total, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	filtered, err := repo.Count(ctx, map[string]any{"title": "Sample record 3"})
	require.NoError(t, err)

	// Asserting
	assert.Equal(t, 7, total)
	assert.Equal(t, 1, filtered)
}

func TestRecordsQueryPagesInInsertOrder(t *testing.T) {
	// Arranging
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.InsertMany(ctx, sampleRecords(12, now)))

	q, err := repo.Query(nil)
	require.NoError(t, err)
	l, err := loader.New[Record](q, loader.WithLimit(5))
	require.NoError(t, err)

	// Acting
	first, err := l.Reload(ctx)
	require.NoError(t, err)
	second, err := l.FindNext(ctx)
	require.NoError(t, err)
	third, err := l.FindNext(ctx)
	require.NoError(t, err)

	// Asserting
	require.Len(t, first, 5)
	assert.Equal(t, "1", first[0].ID)
	assert.Equal(t, "Sample record 1", first[0].Title)
	assert.Equal(t, "every third record has a note (1)", first[0].Note)
	assert.Empty(t, first[1].Note)
	assert.True(t, first[0].CreatedAt.Equal(now))
	assert.Equal(t, "6", second[0].ID)
	assert.Len(t, third, 2)
	assert.False(t, l.CanLoadMore())
}

func TestRecordsQueryFiltersAndFindsFirst(t *testing.T) {
	// Arranging
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.InsertMany(ctx, sampleRecords(4, time.Now())))

	q, err := repo.Query(map[string]any{"title": "Sample record 2"})
	require.NoError(t, err)
	l, err := loader.New[Record](q)
	require.NoError(t, err)
	missing, err := repo.Query(map[string]any{"title": "nope"})
	require.NoError(t, err)

	// Acting
	r, ok, err := l.First(ctx, nil)
	require.NoError(t, err)
	_, missingOK, err := missing.FindOne(ctx, nil)
	require.NoError(t, err)

	// Asserting
	assert.True(t, ok)
	assert.Equal(t, "2", r.ID)
	assert.False(t, missingOK)
}
