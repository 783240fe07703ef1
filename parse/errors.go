package parse

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoMasterKey    = errors.New("parse: useMasterKey requested but the client has no master key")
	ErrOddQueryParams = errors.New("parse: kvpairs must have a length that is a multiple of 2")
)

// Error is the error document Parse Server sends back, e.g. {"code":101,"error":"Object not found."}.
type Error struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"error"`
}

func (err *Error) Error() string {
	return fmt.Sprintf("parse: %s (code %d)", err.Message, err.Code)
}

type HTTPError struct {
	Response *http.Response
	Body     []byte
}

func (err *HTTPError) Error() string {
	return fmt.Sprintf("parse: non-2xx status code %d", err.Response.StatusCode)
}
