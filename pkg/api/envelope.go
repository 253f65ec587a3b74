// Package api holds the JSON contract spoken between the storefront and pizza-service.
package api

import "encoding/json"

// Envelope wraps every response body.
type Envelope struct {
	IsSuccess bool            `json:"is_success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Error     *ErrorBody      `json:"error,omitempty"`
	Meta      *PageMeta       `json:"meta,omitempty"`
}

// ErrorBody describes an application level failure.
type ErrorBody struct {
	Type    string            `json:"type"`
	Details map[string]any    `json:"details,omitempty"`
}

// Error type codes carried in ErrorBody.Type.
const (
	ErrTypeNotFound    = "not_found"
	ErrTypeValidation  = "validation_error"
	ErrTypeBadRequest  = "bad_request"
	ErrTypeConflict    = "conflict"
	ErrTypeRateLimited = "rate_limited"
	ErrTypeInternal    = "internal_error"
)

const MessageSuccess = "Success"

// OK builds a success envelope around an already encoded payload.
func OK(data any, meta *PageMeta) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{IsSuccess: true, Data: raw, Message: MessageSuccess, Meta: meta}, nil
}

// Fail builds a failure envelope.
func Fail(message, errType string, details map[string]string) Envelope {
	return Envelope{
		IsSuccess: false,
		Data:      json.RawMessage("null"),
		Message:   message,
		Error:     &ErrorBody{Type: errType, Details: anyDetails(details)},
	}
}

func anyDetails(details map[string]string) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}
