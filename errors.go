package httpstub

import (
	"errors"
	"fmt"
)

// ErrUnmatchedRequest is the sentinel wrapped by every UnmatchedError; use it
// with errors.Is to recognize the "no stub configured" failure regardless of
// the request it was produced for.
var ErrUnmatchedRequest = errors.New("no stub configured for request")

// An UnmatchedError is the failure delivered for a request that no
// registered stub's matcher accepted. It is the only error the delivery
// engine manufactures itself; every other failure originates from a
// builder's Failure outcome and is passed through unchanged.
type UnmatchedError struct {
	// The HTTP method of the unmatched request.
	Method string
	// The full URL of the unmatched request.
	URL string
}

func (e *UnmatchedError) Error() string {
	return fmt.Sprintf("httpstub: no stub configured for request: %s %s", e.Method, e.URL)
}

// Is reports whether the target is ErrUnmatchedRequest, so that
// errors.Is(err, ErrUnmatchedRequest) holds for any UnmatchedError.
func (e *UnmatchedError) Is(target error) bool {
	return target == ErrUnmatchedRequest
}
