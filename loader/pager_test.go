package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagerRunsThroughAllElements(t *testing.T) {
	// Arranging
	q := newFakeQuery(11)
	l, err := New[int](q, WithLimit(2))
	require.NoError(t, err)
	elements := []int{}
	pager := NewPager(l)

	// Acting
	for {
		i, more, err := pager.Next(context.Background())
		require.NoError(t, err)
		if !more {
			break
		}

		elements = append(elements, i)
	}

	// Asserting
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, elements)
	assert.Equal(t, []int{0, 2, 4, 6, 8, 10}, q.offsets())
}

func TestPagerStopsOnEmptyFullPage(t *testing.T) {
	// Arranging
	q := newFakeQuery(4)
	l, err := New[int](q, WithLimit(2))
	require.NoError(t, err)
	pager := NewPager(l)
	count := 0

	// Acting
	for {
		_, more, err := pager.Next(context.Background())
		require.NoError(t, err)
		if !more {
			break
		}
		count++
	}

	// Asserting
	assert.Equal(t, 4, count)
	assert.Equal(t, []int{0, 2, 4}, q.offsets())
}

func TestPagerStartsAtCurrentSkip(t *testing.T) {
	// Arranging
	q := newFakeQuery(6)
	l, err := New[int](q, WithLimit(4), WithSkip(3))
	require.NoError(t, err)
	pager := NewPager(l)

	// Acting
	first, more, err := pager.Next(context.Background())

	// Asserting
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, 4, first)
}

func TestPagerRetriesFailedPage(t *testing.T) {
	// Arranging
	q := newFakeQuery(5)
	l, err := New[int](q, WithLimit(3))
	require.NoError(t, err)
	pager := NewPager(l)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, more, err := pager.Next(ctx)
		require.NoError(t, err)
		require.True(t, more)
	}

	// Acting
	q.failTimes(1, errBoom)
	_, more, err := pager.Next(ctx)
	require.ErrorIs(t, err, errBoom)
	require.False(t, more)

	rest := []int{}
	for {
		v, more, err := pager.Next(ctx)
		require.NoError(t, err)
		if !more {
			break
		}
		rest = append(rest, v)
	}

	// Asserting
	assert.Equal(t, []int{4, 5}, rest)
	assert.Equal(t, []int{0, 3, 3}, q.offsets())
}
