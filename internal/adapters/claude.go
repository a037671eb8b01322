package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ClaudeAdapter shells out to the claude CLI in print mode with JSON output.
type ClaudeAdapter struct {
	// Command defaults to "claude".
	Command string
	Model   string
}

func (a *ClaudeAdapter) Name() string {
	return "claude-cli"
}

type claudeResult struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype"`
	IsError bool            `json:"is_error"`
	Result  json.RawMessage `json:"result"`
}

func (a *ClaudeAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	command := a.Command
	if command == "" {
		command = "claude"
	}
	model := req.Model
	if model == "" {
		model = a.Model
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := []string{"-p", "--output-format", "json"}
	if model != "" {
		args = append(args, "--model", model)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, command, args...)
	cmd.Stdin = strings.NewReader(req.Prompt)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = mergeEnv(os.Environ(), req.Env)

	resp := &Response{}
	if err := cmd.Run(); err != nil {
		resp.ExitCode = exitCodeFromError(err)
		if runCtx.Err() != nil {
			err = runCtx.Err()
		}
		return resp, fmt.Errorf("%s exited with %d: %w: %s", command, resp.ExitCode, err, strings.TrimSpace(stderr.String()))
	}
	resp.Raw = stdout.Bytes()

	text, err := parseClaudeOutput(resp.Raw)
	if err != nil {
		return resp, err
	}
	resp.Text = text
	return resp, nil
}

// parseClaudeOutput extracts the result text from print-mode JSON output.
func parseClaudeOutput(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", ErrEmptyResponse
	}
	var out claudeResult
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return "", fmt.Errorf("%w: decode output: %v", ErrNonTextResponse, err)
	}
	if out.IsError {
		return "", fmt.Errorf("claude reported an error (%s)", out.Subtype)
	}
	if len(out.Result) == 0 || string(out.Result) == "null" {
		return "", ErrEmptyResponse
	}
	var text string
	if err := json.Unmarshal(out.Result, &text); err != nil {
		return "", ErrNonTextResponse
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(text), nil
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		merged = append(merged, entry)
	}
	for key, value := range overrides {
		merged = append(merged, fmt.Sprintf("%s=%s", key, value))
	}
	return merged
}

func exitCodeFromError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 124
	}
	return 1
}
