package adapters

import (
	"context"
	"strings"
	"sync"
)

// MockAdapter is deterministic and offline. With no Response set it answers
// with the text found between <draft> and </draft> in the prompt.
// Calls and Last are only safe to read once every Complete has returned.
type MockAdapter struct {
	Response string
	Err      error
	Calls    int
	Last     Request

	mu sync.Mutex
}

func (a *MockAdapter) Name() string {
	return "mock"
}

func (a *MockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	a.mu.Lock()
	a.Calls++
	a.Last = req
	a.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Err != nil {
		return nil, a.Err
	}
	text := a.Response
	if text == "" {
		text = between(req.Prompt, "<draft>", "</draft>")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &Response{Text: text, Raw: []byte(text)}, nil
}

func between(s, open, close string) string {
	start := strings.Index(s, open)
	if start < 0 {
		return ""
	}
	rest := s[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
