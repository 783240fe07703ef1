package parse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/duke605/parse-loader/loader"
)

// Per-call options understood by Query.Find and Query.FindOne.
const (
	OptionSessionToken = "sessionToken"
	OptionUseMasterKey = "useMasterKey"
)

type findResults[T any] struct {
	Results []T `json:"results"`
}

// Query is a find against one class. Every builder method returns a copy.
type Query[T any] struct {
	client    Client
	className string
	where     map[string]any
	order     []string
	keys      []string

	// A negative limit leaves the server default in place.
	limit int
	skip  int
}

func NewQuery[T any](c Client, className string) *Query[T] {
	return &Query[T]{client: c, className: className, limit: -1}
}

// Where sets the constraint document sent as the where parameter, e.g.
// {"score": {"$gte": 1000}}.
func (q *Query[T]) Where(where map[string]any) *Query[T] {
	cp := *q
	cp.where = where
	return &cp
}

// Order sorts by the given keys. Prefix a key with - for descending order.
func (q *Query[T]) Order(keys ...string) *Query[T] {
	cp := *q
	cp.order = slices.Clone(keys)
	return &cp
}

func (q *Query[T]) Keys(keys ...string) *Query[T] {
	cp := *q
	cp.keys = slices.Clone(keys)
	return &cp
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
	return q.find(ctx, q.limit, opts)
}

func (q *Query[T]) FindOne(ctx context.Context, opts loader.Options) (T, bool, error) {
	results, err := q.find(ctx, 1, opts)
	if err != nil || len(results) == 0 {
		return *new(T), false, err
	}

	return results[0], true, nil
}

func (q *Query[T]) find(ctx context.Context, limit int, opts loader.Options) ([]T, error) {
	reqOpts, err := q.requestOptions(ctx, limit, opts)
	if err != nil {
		return nil, err
	}

	resp, err := q.client.Do(http.MethodGet, "classes/"+url.PathEscape(q.className), reqOpts...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	dst := findResults[T]{}
	if err := json.NewDecoder(resp.Body).Decode(&dst); err != nil {
		return nil, err
	}
	if dst.Results == nil {
		dst.Results = []T{}
	}

	return dst.Results, nil
}

func (q *Query[T]) requestOptions(ctx context.Context, limit int, opts loader.Options) ([]RequestOption, error) {
	params := []string{}
	if len(q.where) > 0 {
		b, err := json.Marshal(q.where)
		if err != nil {
			return nil, err
		}
		params = append(params, "where", string(b))
	}
	if len(q.order) > 0 {
		params = append(params, "order", strings.Join(q.order, ","))
	}
	if len(q.keys) > 0 {
		params = append(params, "keys", strings.Join(q.keys, ","))
	}
	if limit >= 0 {
		params = append(params, "limit", strconv.Itoa(limit))
	}
	if q.skip > 0 {
		params = append(params, "skip", strconv.Itoa(q.skip))
	}

	reqOpts := []RequestOption{RequestOptionWithQueryParams(params...)}
	if ctx != nil {
		reqOpts = append(reqOpts, RequestOptionWithContext(ctx))
	}

	if token, ok := opts[OptionSessionToken].(string); ok && token != "" {
		reqOpts = append(reqOpts, RequestOptionWithHeader(headerSessionToken, token))
	}
	if useMaster, _ := opts[OptionUseMasterKey].(bool); useMaster {
		if !q.client.HasMasterKey() {
			return nil, ErrNoMasterKey
		}
		reqOpts = append(reqOpts, RequestOptionWithHeader(headerMasterKey, q.client.MasterKey()))
	}

	return reqOpts, nil
}
