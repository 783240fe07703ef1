// Package parse is a small client for the Parse Server REST API.
package parse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/ratelimit"
)

const (
	headerApplicationID = "X-Parse-Application-Id"
	headerRESTAPIKey    = "X-Parse-REST-API-Key"
	headerMasterKey     = "X-Parse-Master-Key"
	headerSessionToken  = "X-Parse-Session-Token"
)

type Client interface {
	Do(method, path string, opts ...RequestOption) (*http.Response, error)
	HasMasterKey() bool
	MasterKey() string
}

type client struct {
	httpClient        *http.Client
	baseURL           *url.URL
	appID             string
	restKey           string
	masterKey         string
	limiter           ratelimit.Limiter
	globalRequestOpts []RequestOption
}

type ClientOption = func(*client)
type RequestOption = func(*http.Request) *http.Request

func ClientOptionWithHTTPClient(c *http.Client) ClientOption {
	return func(cl *client) {
		cl.httpClient = c
	}
}

func ClientOptionWithRESTKey(key string) ClientOption {
	return func(cl *client) {
		cl.restKey = key
	}
}

// ClientOptionWithMasterKey stores the master key. It is only sent on requests that ask
// for it.
func ClientOptionWithMasterKey(key string) ClientOption {
	return func(cl *client) {
		cl.masterKey = key
	}
}

// ClientOptionWithRateLimit makes every request wait for a slot on l.
func ClientOptionWithRateLimit(l ratelimit.Limiter) ClientOption {
	return func(cl *client) {
		cl.limiter = l
	}
}

func ClientOptionGlobalRequestOption(opt RequestOption) ClientOption {
	return func(cl *client) {
		cl.globalRequestOpts = append(cl.globalRequestOpts, opt)
	}
}

func RequestOptionWithContext(ctx context.Context) RequestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(ctx)
	}
}

func RequestOptionWithHeader(key, value string) RequestOption {
	return func(r *http.Request) *http.Request {
		r.Header.Set(key, value)
		return r
	}
}

func RequestOptionWithQueryParams(kvpairs ...string) RequestOption {
	if len(kvpairs)%2 != 0 {
		panic(ErrOddQueryParams)
	}

	return func(r *http.Request) *http.Request {
		q := r.URL.Query()
		for i := 0; i < len(kvpairs); i += 2 {
			q.Set(kvpairs[i], kvpairs[i+1])
		}

		r.URL.RawQuery = q.Encode()
		return r
	}
}

func NewClient(baseURL, appID string, opts ...ClientOption) (Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	c := &client{
		baseURL:    u,
		appID:      appID,
		httpClient: http.DefaultClient,
		limiter:    ratelimit.NewUnlimited(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (client *client) HasMasterKey() bool {
	return client.masterKey != ""
}

func (client *client) MasterKey() string {
	return client.masterKey
}

// Do sends the request and returns the response for any 2xx status. Anything else is
// turned into an *Error when the body is a Parse error document, or an *HTTPError.
func (client *client) Do(method, path string, opts ...RequestOption) (*http.Response, error) {
	u := client.baseURL.JoinPath(path)
	req, err := http.NewRequest(method, u.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set(headerApplicationID, client.appID)
	if client.restKey != "" {
		req.Header.Set(headerRESTAPIKey, client.restKey)
	}
	req.Header.Set("Accept", "application/json")

	for _, opt := range client.globalRequestOpts {
		req = opt(req)
	}
	for _, opt := range opts {
		req = opt(req)
	}

	client.limiter.Take()
	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}

	return resp, err
}

func errorFromResponse(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return &HTTPError{Response: resp}
	}

	perr := &Error{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, perr); err != nil || perr.Message == "" {
		return &HTTPError{Response: resp, Body: body}
	}

	return perr
}
