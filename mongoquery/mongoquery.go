// Package mongoquery adapts a MongoDB collection find to loader.Query.
package mongoquery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/duke605/parse-loader/loader"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OptionProjection limits the returned fields, e.g. bson.D{{Key: "title", Value: 1}}.
const OptionProjection = "projection"

// Collection is the part of *mongo.Collection used here.
type Collection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

type Query[T any] struct {
	coll   Collection
	filter interface{}
	sort   bson.D
	logger *slog.Logger

	// A negative limit means no limit.
	limit int
	skip  int
}

type config struct {
	sort   bson.D
	logger *slog.Logger
}

type Option = func(*config)

func WithSort(sort bson.D) Option {
	return func(c *config) {
		c.sort = sort
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a query over coll. A nil filter matches every document.
func New[T any](coll Collection, filter interface{}, opts ...Option) *Query[T] {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if filter == nil {
		filter = bson.D{}
	}

	return &Query[T]{
		coll:   coll,
		filter: filter,
		sort:   cfg.sort,
		logger: cfg.logger,
		limit:  -1,
	}
}

func (q *Query[T]) WithLimit(n int) loader.Query[T] {
	cp := *q
	cp.limit = n
	return &cp
}

func (q *Query[T]) WithOffset(n int) loader.Query[T] {
	cp := *q
	cp.skip = n
	return &cp
}

func (q *Query[T]) Find(ctx context.Context, opts loader.Options) ([]T, error) {
	findOpts := options.Find()
	if q.limit >= 0 {
		findOpts.SetLimit(int64(q.limit))
	}
	if q.skip > 0 {
		findOpts.SetSkip(int64(q.skip))
	}
	if len(q.sort) > 0 {
		findOpts.SetSort(q.sort)
	}
	if p, ok := opts[OptionProjection]; ok {
		findOpts.SetProjection(p)
	}

	start := time.Now()
	defer q.logQuery(ctx, "Finding documents", start, "limit", q.limit, "skip", q.skip)

	cursor, err := q.coll.Find(ctx, q.filter, findOpts)
	if err != nil {
		return nil, err
	}

	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	return results, nil
}

func (q *Query[T]) FindOne(ctx context.Context, opts loader.Options) (T, bool, error) {
	var t T
	findOpts := options.FindOne()
	if q.skip > 0 {
		findOpts.SetSkip(int64(q.skip))
	}
	if len(q.sort) > 0 {
		findOpts.SetSort(q.sort)
	}
	if p, ok := opts[OptionProjection]; ok {
		findOpts.SetProjection(p)
	}

	start := time.Now()
	defer q.logQuery(ctx, "Finding first document", start, "skip", q.skip)

	err := q.coll.FindOne(ctx, q.filter, findOpts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return t, false, nil
	} else if err != nil {
		return t, false, err
	}

	return t, true, nil
}

func (q *Query[T]) logQuery(ctx context.Context, msg string, start time.Time, args ...interface{}) {
	args = append(args, "duration", time.Since(start))
	q.logger.DebugContext(ctx, msg, args...)
}
