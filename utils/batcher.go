package utils

// Batcher collects values and hands them to a flush function in groups of limit.
type Batcher[T any] interface {
	Add(T) error
	Flush() error
	Flushed() int
}

type batcher[T any] struct {
	limit   int
	buf     []T
	flushed int
	flushFn func([]T) error
}

// NewBatcher returns a Batcher that flushes once limit values are pending. A limit below 1
// flushes every value on its own.
func NewBatcher[T any](limit int, flushFn func([]T) error) Batcher[T] {
	if limit < 1 {
		limit = 1
	}

	return &batcher[T]{
		limit:   limit,
		flushFn: flushFn,
		buf:     make([]T, 0, limit),
	}
}

func (bat *batcher[T]) Add(t T) error {
	bat.buf = append(bat.buf, t)
	if len(bat.buf) >= bat.limit {
		return bat.Flush()
	}

	return nil
}

// Flush hands the pending values to the flush function. On error they stay pending.
func (bat *batcher[T]) Flush() error {
	if len(bat.buf) == 0 {
		return nil
	}

	if err := bat.flushFn(bat.buf); err != nil {
		return err
	}

	bat.flushed += len(bat.buf)
	bat.buf = bat.buf[:0]
	return nil
}

// Flushed is the number of values successfully passed to the flush function so far.
func (bat *batcher[T]) Flushed() int {
	return bat.flushed
}
