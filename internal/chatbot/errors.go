package chatbot

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery      = errors.New("query is required")
	ErrQueryTooLong    = errors.New("query is too long")
	ErrMessageNotFound = errors.New("chat message not found")
	ErrUnavailable     = errors.New("chatbot is not configured")
)

// UpstreamError wraps a failed call to the search or language-model API.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
