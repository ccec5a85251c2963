// Package bazel runs the bazel commands that produce an action graph.
package bazel

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"compdb/internal/aquery"
	"compdb/internal/config"
	"compdb/internal/errors"
)

// stderrTailLines bounds the stderr carried in BUILD_TOOL_FAILED details.
const stderrTailLines = 20

// CommandDetails describes a failed bazel invocation.
type CommandDetails struct {
	Command  []string `json:"command"`
	Dir      string   `json:"dir"`
	ExitCode int      `json:"exitCode,omitempty"`
	Stderr   string   `json:"stderr,omitempty"`
}

// Client issues bazel commands inside one workspace.
type Client struct {
	runner    Runner
	workspace string
	cfg       config.BazelConfig
	logger    *slog.Logger
}

// NewClient creates a client that runs cfg.Binary in workspace.
func NewClient(runner Runner, workspace string, cfg config.BazelConfig, logger *slog.Logger) *Client {
	return &Client{
		runner:    runner,
		workspace: workspace,
		cfg:       cfg,
		logger:    logger,
	}
}

// Check verifies that the bazel binary can be found.
func (c *Client) Check() error {
	path, err := c.runner.LookPath(c.cfg.Binary)
	if err != nil {
		return errors.NewCompdbError(errors.BuildToolFailed,
			fmt.Sprintf("%s not found in PATH", c.cfg.Binary), err,
			[]errors.FixAction{
				{
					Type:        errors.EditConfig,
					Description: "Set bazel.binary (or COMPDB_BAZEL_BINARY) to the bazel or bazelisk executable",
				},
				{
					Type:        errors.SetFlag,
					Flag:        "--trace",
					Description: "Pass a saved aquery trace instead of running bazel",
				},
			})
	}
	c.logger.Debug("Found bazel", "path", path)
	return nil
}

// ExecutionRoot returns the output of `bazel info execution_root`.
func (c *Client) ExecutionRoot(ctx context.Context) (string, error) {
	stdout, err := c.run(ctx, "info", "execution_root")
	if err != nil {
		return "", err
	}
	root := strings.TrimSpace(string(stdout))
	if root == "" {
		return "", errors.New(errors.BuildToolFailed, "%s info execution_root printed nothing", c.cfg.Binary)
	}
	return root, nil
}

// AQuery queries the compile actions reachable from targets and decodes
// the jsonproto output. extraArgs are appended after the configured flags.
func (c *Client) AQuery(ctx context.Context, targets, extraArgs []string) (*aquery.Document, error) {
	expr, err := QueryExpression(c.cfg.Mnemonic, c.cfg.TargetFilter, targets)
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, 2+len(c.cfg.QueryFlags)+len(extraArgs))
	args = append(args, "aquery", expr)
	args = append(args, c.cfg.QueryFlags...)
	args = append(args, extraArgs...)

	stdout, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return aquery.Decode(bytes.NewReader(stdout))
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	start := time.Now()
	c.logger.Debug("Running bazel", "args", strings.Join(args, " "), "dir", c.workspace)

	stdout, stderr, err := c.runner.Run(ctx, c.workspace, c.cfg.Binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s interrupted: %w", c.cfg.Binary, args[0], ctxErr)
		}
		details := CommandDetails{
			Command: append([]string{c.cfg.Binary}, args...),
			Dir:     c.workspace,
			Stderr:  tail(stderr, stderrTailLines),
		}
		var exitErr interface{ ExitCode() int }
		if stderrors.As(err, &exitErr) {
			details.ExitCode = exitErr.ExitCode()
		}
		return nil, errors.Wrap(errors.BuildToolFailed, err, "%s %s failed", c.cfg.Binary, args[0]).WithDetails(details)
	}

	c.logger.Debug("Bazel finished", "command", args[0], "bytes", len(stdout), "duration", time.Since(start))
	return stdout, nil
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
