// Package sqlquery runs squirrel select builders through sqlx as a loader.Query.
package sqlquery

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/duke605/parse-loader/loader"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
)

const DefaultCacheSize = 128

type stmtKey struct {
	limit  int
	offset int
	one    bool
}

type stmt struct {
	query string
	args  []interface{}
}

// Query is an immutable select. WithLimit and WithOffset hand back copies that share the
// database handle and the rendered statement cache.
type Query[T any] struct {
	db      sqlx.QueryerContext
	builder sq.SelectBuilder
	stmts   *lru.Cache[stmtKey, stmt]
	logger  *slog.Logger

	// A negative limit means no LIMIT clause.
	limit  int
	offset int
}

type config struct {
	cacheSize int
	logger    *slog.Logger
}

type Option = func(*config)

func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps builder. The builder must not carry its own LIMIT or OFFSET since those are
// set per page.
func New[T any](db sqlx.QueryerContext, builder sq.SelectBuilder, opts ...Option) (*Query[T], error) {
	cfg := config{cacheSize: DefaultCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := lru.New[stmtKey, stmt](cfg.cacheSize)
	if err != nil {
		return nil, err
	}

	return &Query[T]{
		db:      db,
		builder: builder,
		stmts:   cache,
		logger:  cfg.logger,
		limit:   -1,
	}, nil
}

func (q *Query[T]) WithLimit(n int) loader.Query[T] {
	cp := *q
	cp.limit = n
	return &cp
}

func (q *Query[T]) WithOffset(n int) loader.Query[T] {
	cp := *q
	cp.offset = n
	return &cp
}

// Find ignores opts.
func (q *Query[T]) Find(ctx context.Context, opts loader.Options) ([]T, error) {
	s, err := q.render(stmtKey{limit: q.limit, offset: q.offset})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer q.logQuery(ctx, "Finding records", start, "query", s.query, "args", s.args)

	results := []T{}
	if err := sqlx.SelectContext(ctx, q.db, &results, s.query, s.args...); err != nil {
		return nil, err
	}

	return results, nil
}

// FindOne returns the first row at the query's offset. Absent rows are reported through
// the boolean, not sql.ErrNoRows.
func (q *Query[T]) FindOne(ctx context.Context, opts loader.Options) (T, bool, error) {
	var t T
	s, err := q.render(stmtKey{limit: 1, offset: q.offset, one: true})
	if err != nil {
		return t, false, err
	}

	start := time.Now()
	defer q.logQuery(ctx, "Finding first record", start, "query", s.query, "args", s.args)

	err = sqlx.GetContext(ctx, q.db, &t, s.query, s.args...)
	if errors.Is(err, sql.ErrNoRows) {
		return t, false, nil
	} else if err != nil {
		return t, false, err
	}

	return t, true, nil
}

func (q *Query[T]) render(key stmtKey) (stmt, error) {
	if s, ok := q.stmts.Get(key); ok {
		return s, nil
	}

	builder := q.builder
	if key.limit >= 0 {
		builder = builder.Limit(uint64(key.limit))
	}
	if key.offset > 0 {
		builder = builder.Offset(uint64(key.offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return stmt{}, err
	}

	s := stmt{query: query, args: args}
	q.stmts.Add(key, s)
	return s, nil
}

func (q *Query[T]) logQuery(ctx context.Context, msg string, start time.Time, args ...interface{}) {
	args = append(args, "duration", time.Since(start))
	q.logger.DebugContext(ctx, msg, args...)
}
