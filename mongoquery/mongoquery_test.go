package mongoquery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/duke605/parse-loader/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type doc struct {
	ID    string `bson:"_id"`
	Title string `bson:"title"`
}

// fakeCollection slices a fixed list of documents using the skip and limit it was given.
type fakeCollection struct {
	docs     []interface{}
	err      error
	filter   interface{}
	findOpts *options.FindOptions
	oneOpts  *options.FindOneOptions
}

func newFakeCollection(n int) *fakeCollection {
	c := &fakeCollection{}
	for i := 0; i < n; i++ {
		c.docs = append(c.docs, bson.D{
			{Key: "_id", Value: fmt.Sprintf("doc%d", i)},
			{Key: "title", Value: fmt.Sprintf("title %d", i)},
		})
	}
	return c
}

func (c *fakeCollection) window(skip, limit *int64) []interface{} {
	start, end := 0, len(c.docs)
	if skip != nil {
		start = min(int(*skip), end)
	}
	if limit != nil && *limit > 0 {
		end = min(start+int(*limit), end)
	}
	return c.docs[start:end]
}

func (c *fakeCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.filter = filter
	c.findOpts = opts[0]
	if c.err != nil {
		return nil, c.err
	}

	return mongo.NewCursorFromDocuments(c.window(opts[0].Skip, opts[0].Limit), nil, nil)
}

func (c *fakeCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.filter = filter
	c.oneOpts = opts[0]
	if c.err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, c.err, nil)
	}

	docs := c.window(opts[0].Skip, nil)
	if len(docs) == 0 {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(docs[0], nil, nil)
}

func TestFindSetsLimitSkipAndSort(t *testing.T) {
	// Arranging
	coll := newFakeCollection(12)
	sort := bson.D{{Key: "title", Value: 1}}
	q := New[doc](coll, bson.M{"kind": "a"}, WithSort(sort))

	// Acting
	docs, err := q.WithLimit(5).WithOffset(10).Find(context.Background(), loader.Options{
		OptionProjection: bson.D{{Key: "title", Value: 1}},
	})

	// Asserting
	require.NoError(t, err)
	assert.Equal(t, []doc{{"doc10", "title 10"}, {"doc11", "title 11"}}, docs)
	assert.Equal(t, bson.M{"kind": "a"}, coll.filter)
	assert.Equal(t, int64(5), *coll.findOpts.Limit)
	assert.Equal(t, int64(10), *coll.findOpts.Skip)
	assert.Equal(t, sort, coll.findOpts.Sort)
	assert.Equal(t, bson.D{{Key: "title", Value: 1}}, coll.findOpts.Projection)
}

func TestNilFilterMatchesEverything(t *testing.T) {
	// Arranging
	coll := newFakeCollection(2)
	q := New[doc](coll, nil)

	// Acting
	docs, err := q.Find(context.Background(), nil)

	// Asserting
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, bson.D{}, coll.filter)
	assert.Nil(t, coll.findOpts.Limit)
	assert.Nil(t, coll.findOpts.Skip)
}

func TestFindOne(t *testing.T) {
	// Arranging
	coll := newFakeCollection(3)
	empty := newFakeCollection(0)

	// Acting
	d, ok, err := New[doc](coll, nil).FindOne(context.Background(), nil)
	require.NoError(t, err)
	_, emptyOK, emptyErr := New[doc](empty, nil).FindOne(context.Background(), nil)

	// Asserting
	assert.True(t, ok)
	assert.Equal(t, "doc0", d.ID)
	assert.NoError(t, emptyErr)
	assert.False(t, emptyOK)
}

func TestErrorsPassThrough(t *testing.T) {
	// Arranging
	boom := errors.New("server selection timeout")
	coll := newFakeCollection(3)
	coll.err = boom
	q := New[doc](coll, nil)

	// Acting
	_, findErr := q.WithLimit(10).Find(context.Background(), nil)
	_, ok, oneErr := q.FindOne(context.Background(), nil)

	// Asserting
	assert.ErrorIs(t, findErr, boom)
	assert.ErrorIs(t, oneErr, boom)
	assert.False(t, ok)
}

func TestLoaderOverCollection(t *testing.T) {
	// Arranging
	coll := newFakeCollection(20)
	l, err := loader.New[doc](New[doc](coll, nil), loader.WithLimit(10))
	require.NoError(t, err)
	ctx := context.Background()

	// Acting
	_, err = l.Reload(ctx)
	require.NoError(t, err)
	second, err := l.FindNext(ctx)
	require.NoError(t, err)
	third, err := l.FindNext(ctx)
	require.NoError(t, err)

	// Asserting
	assert.Equal(t, "doc10", second[0].ID)
	assert.Empty(t, third)
	assert.False(t, l.CanLoadMore())
	assert.Equal(t, 20, l.Skip())
}
