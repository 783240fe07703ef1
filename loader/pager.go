package loader

import "context"

// Pager walks a loader one record at a time.
type Pager[T any] interface {
	Next(ctx context.Context) (T, bool, error)
}

type pager[T any] struct {
	loader  *Loader[T]
	buf     []T
	currIdx int
	started bool
	done    bool
}

// NewPager returns a Pager that starts at the loader's current cursor and keeps calling
// FindNext until a page comes back short or empty. When Next returns an error the same
// page is fetched again on the following call.
func NewPager[T any](l *Loader[T]) Pager[T] {
	return &pager[T]{loader: l}
}

func (p *pager[T]) Next(ctx context.Context) (T, bool, error) {
	if p.done {
		return *new(T), false, nil
	}

	if p.currIdx > len(p.buf)-1 {
		b, err := p.nextPage(ctx)
		if err != nil {
			return *new(T), false, err
		} else if len(b) == 0 {
			p.done = true
			return *new(T), false, nil
		}

		p.buf = b
		p.currIdx = 0
	}

	t := p.buf[p.currIdx]
	p.currIdx++

	return t, true, nil
}

func (p *pager[T]) nextPage(ctx context.Context) ([]T, error) {
	if !p.started {
		b, err := p.loader.Reload(ctx)
		if err != nil {
			return nil, err
		}

		p.started = true
		return b, nil
	}

	if !p.loader.CanLoadMore() {
		return nil, nil
	}

	return p.loader.FindNext(ctx)
}
