package loader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Options are handed to the underlying query untouched. Which keys mean anything is up
// to the query implementation.
type Options = map[string]any

// Query is a re-parameterisable find operation against some data source. WithLimit and
// WithOffset must return copies and leave the receiver as it was.
type Query[T any] interface {
	WithLimit(n int) Query[T]
	WithOffset(n int) Query[T]
	Find(ctx context.Context, opts Options) ([]T, error)
	FindOne(ctx context.Context, opts Options) (T, bool, error)
}

// Loader pages through the results of a query. It keeps a skip cursor that moves by limit
// on every FindNext/FindPrevious and remembers whether the last fetch failed or came back
// short.
type Loader[T any] struct {
	mu     sync.Mutex
	slot   *semaphore.Weighted
	logger *slog.Logger

	query Query[T]
	limit int
	skip  int

	executedFind  bool
	executedFirst bool
	canLoadMore   bool
	hadError      bool
}

func New[T any](q Query[T], opts ...Option) (*Loader[T], error) {
	if q == nil {
		return nil, ErrNilQuery
	}

	cfg := config{limit: DefaultLimit, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.limit < 1 {
		return nil, ErrInvalidLimit
	}
	if cfg.skip < 0 {
		return nil, ErrInvalidSkip
	}

	l := &Loader[T]{
		slot:   semaphore.NewWeighted(1),
		logger: cfg.logger,
		query:  q,
		limit:  cfg.limit,
		skip:   cfg.skip,
	}
	l.start()

	return l, nil
}

// start puts the flags back to the state of a loader that has never fetched. Callers
// must hold mu.
func (l *Loader[T]) start() {
	l.canLoadMore = true
	l.hadError = false
	l.executedFind = false
	l.executedFirst = false
}

func (l *Loader[T]) SetQuery(q Query[T]) error {
	if q == nil {
		return ErrNilQuery
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q
	return nil
}

func (l *Loader[T]) SetLimit(limit int) error {
	if limit < 1 {
		return ErrInvalidLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = limit
	return nil
}

func (l *Loader[T]) SetSkip(skip int) error {
	if skip < 0 {
		return ErrInvalidSkip
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.skip = skip
	return nil
}

func (l *Loader[T]) Query() Query[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

func (l *Loader[T]) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *Loader[T]) Skip() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.skip
}

// CanLoadMore reports whether another page may exist. It is optimistic until something
// has been fetched, and First counts as a fetch here: after First it is whether a record
// was found. After a page fetch it only means the last page was full, so a source whose
// final page holds exactly limit records reports true once more.
func (l *Loader[T]) CanLoadMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.executedFind && !l.executedFirst {
		return true
	}

	return l.canLoadMore
}

// HadError reports whether the most recent fetch failed.
func (l *Loader[T]) HadError() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.executedFind && !l.executedFirst {
		return false
	}

	return l.hadError
}

// Restart moves the cursor back to zero and forgets every previous fetch. It does not wait
// for the fetch slot, so a fetch still in flight marks the loader as having fetched again
// when it completes.
func (l *Loader[T]) Restart() *Loader[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.skip = 0
	l.start()
	return l
}

// First returns the first record of the query as it is, ignoring limit and skip. The
// boolean is false when the query matched nothing.
func (l *Loader[T]) First(ctx context.Context, opts Options) (T, bool, error) {
	ctx, err := l.acquire(ctx)
	if err != nil {
		return *new(T), false, err
	}
	defer l.slot.Release(1)

	l.mu.Lock()
	q := l.query
	l.hadError = false
	l.mu.Unlock()

	start := time.Now()
	t, ok, err := q.FindOne(ctx, opts)

	l.mu.Lock()
	l.executedFirst = true
	if err != nil {
		l.hadError = true
	} else {
		l.canLoadMore = ok
	}
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "Fetched first record",
		"found", ok,
		"error", err,
		"duration", time.Since(start),
	)
	return t, ok, err
}

// Find fetches the page at the current limit and skip.
func (l *Loader[T]) Find(ctx context.Context, opts Options) ([]T, error) {
	ctx, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer l.slot.Release(1)

	return l.find(ctx, opts)
}

// Reload fetches the current page again without moving the cursor.
func (l *Loader[T]) Reload(ctx context.Context) ([]T, error) {
	return l.Find(ctx, nil)
}

// FindNext moves the cursor forward one page and fetches it. The cursor stays put when
// nothing has been fetched yet or the last fetch failed, so a failed page is retried
// instead of skipped.
func (l *Loader[T]) FindNext(ctx context.Context) ([]T, error) {
	ctx, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer l.slot.Release(1)

	l.mu.Lock()
	if l.executedFind && !l.hadError {
		l.skip += l.limit
	}
	l.mu.Unlock()

	return l.find(ctx, nil)
}

// FindPrevious moves the cursor back one page, never below zero, and fetches it.
func (l *Loader[T]) FindPrevious(ctx context.Context) ([]T, error) {
	ctx, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer l.slot.Release(1)

	l.mu.Lock()
	if l.executedFind {
		l.skip = max(0, l.skip-l.limit)
	}
	l.mu.Unlock()

	return l.find(ctx, nil)
}

// acquire waits for the fetch slot and returns the context the fetch should run with. A
// nil ctx becomes context.Background().
func (l *Loader[T]) acquire(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	return ctx, l.slot.Acquire(ctx, 1)
}

// find runs the page query. Callers must hold the fetch slot.
func (l *Loader[T]) find(ctx context.Context, opts Options) ([]T, error) {
	l.mu.Lock()
	limit, skip := l.limit, l.skip
	q := l.query.WithLimit(limit).WithOffset(skip)
	l.hadError = false
	l.mu.Unlock()

	start := time.Now()
	results, err := q.Find(ctx, opts)

	l.mu.Lock()
	l.executedFind = true
	if err != nil {
		l.hadError = true
	} else {
		l.canLoadMore = len(results) == limit
	}
	l.mu.Unlock()

	l.logger.DebugContext(ctx, "Fetched page",
		"limit", limit,
		"skip", skip,
		"count", len(results),
		"error", err,
		"duration", time.Since(start),
	)
	if err != nil {
		return nil, err
	}

	return results, nil
}
