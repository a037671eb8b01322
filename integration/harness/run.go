package harness

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"sort"
	"strings"
	"testing"
)

// Result is the outcome of one CLI invocation.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Invocation describes one CLI call.
type Invocation struct {
	Args  []string
	Dir   string
	Stdin string
	Env   map[string]string
}

// Run executes the CLI in the provided working directory.
func Run(t *testing.T, binPath, workDir string, args []string) Result {
	t.Helper()
	return Exec(t, binPath, Invocation{Args: args, Dir: workDir})
}

// Exec executes the CLI as described by inv.
func Exec(t *testing.T, binPath string, inv Invocation) Result {
	t.Helper()

	cmd := exec.Command(binPath, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = mergeEnv(inv.Env)
	}
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{}
	if err := cmd.Run(); err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			res.Code = ee.ExitCode()
		} else {
			t.Fatalf("run %s: %v", binPath, err)
		}
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}

// MustSucceed fails the test unless the invocation exited 0.
func (r Result) MustSucceed(t *testing.T, what string) Result {
	t.Helper()
	if r.Code != 0 {
		t.Fatalf("%s exit code %d\nstdout:\n%s\nstderr:\n%s", what, r.Code, r.Stdout, r.Stderr)
	}
	return r
}

// DecodeStdout unmarshals the invocation's stdout as JSON into v.
func (r Result) DecodeStdout(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(r.Stdout), v); err != nil {
		t.Fatalf("decode stdout: %v\nstdout:\n%s", err, r.Stdout)
	}
}

func mergeEnv(overrides map[string]string) []string {
	env := make(map[string]string, len(overrides))
	for _, entry := range os.Environ() {
		key, val, _ := strings.Cut(entry, "=")
		env[key] = val
	}
	for k, v := range overrides {
		env[k] = v
	}

	merged := make([]string, 0, len(env))
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	sort.Strings(merged)
	return merged
}
