package bazel

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
)

// Runner abstracts command execution for testability.
type Runner interface {
	// LookPath checks if a binary exists in PATH.
	LookPath(name string) (string, error)

	// Run executes name in dir and returns its standard output unmodified
	// along with its trimmed standard error.
	Run(ctx context.Context, dir, name string, args ...string) (stdout []byte, stderr string, err error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// LookPath checks if a binary exists in PATH.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes a command and returns its output. Cancelling ctx kills the
// child process.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), strings.TrimSpace(stderr.String()), err
}

// Call records one invocation seen by a MockRunner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// MockRunner implements Runner for testing.
type MockRunner struct {
	mu       sync.Mutex
	lookPath map[string]string
	commands map[string]mockResult
	calls    []Call
}

type mockResult struct {
	stdout []byte
	stderr string
	err    error
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		lookPath: make(map[string]string),
		commands: make(map[string]mockResult),
	}
}

// SetLookPath configures the mock to return a path for the given name.
func (m *MockRunner) SetLookPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPath[name] = path
}

// SetCommand configures the result for a command. key is either the bare
// binary name or the binary followed by its first argument, e.g. "bazel info".
func (m *MockRunner) SetCommand(key string, stdout []byte, stderr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[key] = mockResult{stdout: stdout, stderr: stderr, err: err}
}

// Calls returns the invocations seen so far.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// LookPath implements Runner.
func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.lookPath[name]; ok {
		return path, nil
	}
	return "", exec.ErrNotFound
}

// Run implements Runner.
func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Dir: dir, Name: name, Args: append([]string(nil), args...)})

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if len(args) > 0 {
		if result, ok := m.commands[name+" "+args[0]]; ok {
			return result.stdout, result.stderr, result.err
		}
	}
	if result, ok := m.commands[name]; ok {
		return result.stdout, result.stderr, result.err
	}

	return nil, "", exec.ErrNotFound
}
