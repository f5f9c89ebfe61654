package compose

import (
	"context"
	"strings"
	"sync"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// MockRunner is a mock implementation of Runner for testing.
// Responses are matched by the first argument after the compose file
// (the subcommand, e.g. "up" or "ps"); calls are recorded.
type MockRunner struct {
	mu        sync.Mutex
	Calls     [][]string
	Responses map[string][]MockResponse
	OnRun     func(args []string)
}

// MockResponse is returned for one call; the last response of a subcommand repeats.
type MockResponse struct {
	Result Result
	Err    error
}

// Fail builds a response for a failed invocation.
func Fail(code int, output string) MockResponse {
	return MockResponse{
		Result: Result{ExitCode: code, Output: output},
		Err:    shrderrors.Wrap(shrderrors.ErrExternalProcess, "exit code %d", code),
	}
}

// Ok builds a response for a successful invocation.
func Ok(output string) MockResponse {
	return MockResponse{Result: Result{Output: output}}
}

func (m *MockRunner) Run(_ context.Context, args ...string) (Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, append([]string{}, args...))
	sub := subcommand(args)
	var resp MockResponse
	if queue := m.Responses[sub]; len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			m.Responses[sub] = queue[1:]
		}
	}
	onRun := m.OnRun
	m.mu.Unlock()

	if onRun != nil {
		onRun(args)
	}
	return resp.Result, resp.Err
}

// Commands returns every recorded call joined with spaces.
func (m *MockRunner) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-f" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}
