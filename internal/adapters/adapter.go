package adapters

import (
	"context"
	"errors"
	"time"
)

// LLM completes a single prompt. Implementations make one attempt and never
// retry.
type LLM interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request configures one completion.
type Request struct {
	Prompt  string
	Model   string
	Env     map[string]string
	Timeout time.Duration
}

// Response carries the completion text plus the raw adapter output.
type Response struct {
	Text     string
	Raw      []byte
	ExitCode int
}

var (
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNonTextResponse is returned when the model answered with something
	// other than text.
	ErrNonTextResponse = errors.New("non-text response")
)
