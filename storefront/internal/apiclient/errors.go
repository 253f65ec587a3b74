package apiclient

import (
	"errors"
	"fmt"
)

// NetworkError is a transport level failure: the request never completed, the
// server answered with a non-2xx status, or the body was not a valid envelope.
// It carries no application semantics.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("apiclient: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("apiclient: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ApplicationError means the server understood the request and answered with
// is_success=false.
type ApplicationError struct {
	Op      string
	Message string
	Type    string
	Details map[string]any
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("apiclient: %s: %s", e.Op, e.Message)
}

var errUnexpectedStatus = errors.New("unexpected HTTP status")

type statusError struct {
	code int
	body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

// IsStatus reports whether err is a NetworkError with the given status code.
func IsStatus(err error, code int) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.StatusCode == code
}
