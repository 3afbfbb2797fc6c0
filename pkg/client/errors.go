package client

import (
	"errors"
	"fmt"
)

// ErrDecode is wrapped when a 200 response is not a JSON array of objects.
var ErrDecode = errors.New("decode upstream response")

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassUnexpected represents any other non-200 status.
	ErrorClassUnexpected ErrorClass = "unexpected_status"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 200 response with an unusable body.
	ErrorClassDecode ErrorClass = "decode"
)

// UpstreamError is a non-200 response from the remote remains API. Body is
// the response body exactly as received.
type UpstreamError struct {
	StatusCode int
	Class      ErrorClass
	Body       string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s error (status %d)", e.Class, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s error (status %d): %s", e.Class, e.StatusCode, e.Body)
}

// AsUpstreamError extracts an *UpstreamError from err's chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// classifyStatus maps a non-200 status code to its class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
