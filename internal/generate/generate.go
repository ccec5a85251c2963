// Package generate drives one compile_commands.json generation run: it
// obtains an action graph, resolves it and writes the database.
package generate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"compdb/internal/aquery"
	"compdb/internal/bazel"
	"compdb/internal/compdb"
	"compdb/internal/config"
	"compdb/internal/errors"
	"compdb/internal/paths"
	"compdb/internal/resolve"
)

// Options describes one generation run.
type Options struct {
	// Workspace is the absolute workspace directory bazel runs in.
	Workspace string
	// ExecutionRoot skips `bazel info execution_root` when set.
	ExecutionRoot string
	// TracePath reads a saved aquery trace instead of running bazel aquery.
	TracePath string
	// Targets are the target patterns to query.
	Targets []string
	// BazelArgs are passed to bazel aquery after the configured flags.
	BazelArgs []string
	// Output overrides output.file.
	Output string
	// Exclude adds patterns to output.exclude.
	Exclude []string
}

// Result summarizes a completed run.
type Result struct {
	RunID      string        `json:"runId"`
	OutputPath string        `json:"outputPath"`
	Entries    int           `json:"entries"`
	Excluded   int           `json:"excluded"`
	Previous   int           `json:"previous"`
	Duration   time.Duration `json:"duration"`
}

// Generator runs generations with a fixed configuration.
type Generator struct {
	cfg    *config.Config
	runner bazel.Runner
	out    io.Writer
	logger *slog.Logger
}

// New creates a generator. Progress lines go to out, diagnostics to logger.
func New(cfg *config.Config, runner bazel.Runner, out io.Writer, logger *slog.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		runner: runner,
		out:    out,
		logger: logger,
	}
}

// Run executes one generation. The database file is only replaced when
// every step succeeded.
func (g *Generator) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := g.logger.With("run_id", runID)

	if err := g.cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, err, "invalid configuration")
	}
	if opts.TracePath == "" && len(opts.Targets) == 0 {
		return nil, errors.New(errors.NoTargets, "no targets given and no --trace file")
	}

	client := bazel.NewClient(g.runner, opts.Workspace, g.cfg.Bazel, logger.WithGroup("bazel"))

	execRoot := opts.ExecutionRoot
	if execRoot == "" {
		g.progress("Getting the execution root...")
		if err := client.Check(); err != nil {
			return nil, err
		}
		root, err := client.ExecutionRoot(ctx)
		if err != nil {
			return nil, err
		}
		execRoot = root
	}
	logger.Info("Execution root", "path", execRoot)

	doc, err := g.load(ctx, client, opts)
	if err != nil {
		return nil, err
	}

	g.progress("Parsing results...")
	res, err := resolve.Resolve(doc)
	if err != nil {
		return nil, err
	}
	logger.Info("Resolved action graph",
		"fragments", len(res.Paths),
		"depSets", len(res.DepSets),
		"artifacts", len(res.Artifacts),
		"actions", len(doc.Actions))

	exclude := append(append([]string{}, g.cfg.Output.Exclude...), opts.Exclude...)
	db, err := compdb.Build(res, doc.Actions, compdb.Options{
		ExecutionRoot: execRoot,
		Compilers: compdb.Compilers{
			C:           g.cfg.Compilers.C,
			CXX:         g.cfg.Compilers.CXX,
			CExtensions: g.cfg.Compilers.CExtensions,
		},
		Exclude: exclude,
		Labels:  doc.TargetLabels(),
	})
	if err != nil {
		return nil, err
	}
	if db.Excluded > 0 {
		logger.Info("Excluded entries", "count", db.Excluded, "patterns", exclude)
	}

	file := g.cfg.Output.File
	if opts.Output != "" {
		file = opts.Output
	}
	outPath := paths.OutputPath(opts.Workspace, file)

	previous := g.previousCount(logger, outPath)

	g.progress("Writing %d entries to %s...", len(db.Entries), paths.DisplayPath(outPath, opts.Workspace))
	if err := compdb.WriteFile(outPath, db.Entries); err != nil {
		return nil, err
	}
	g.progress("Done.")

	result := &Result{
		RunID:      runID,
		OutputPath: outPath,
		Entries:    len(db.Entries),
		Excluded:   db.Excluded,
		Previous:   previous,
		Duration:   time.Since(start),
	}
	logger.Info("Generation complete",
		"entries", result.Entries,
		"previous", result.Previous,
		"duration", result.Duration)
	return result, nil
}

func (g *Generator) load(ctx context.Context, client *bazel.Client, opts Options) (*aquery.Document, error) {
	if opts.TracePath != "" {
		g.progress("Reading %s...", paths.DisplayPath(opts.TracePath, opts.Workspace))
		return aquery.Open(opts.TracePath)
	}
	g.progress("Querying Bazel...")
	return client.AQuery(ctx, opts.Targets, opts.BazelArgs)
}

// previousCount returns the number of entries in the database about to be
// replaced, or -1 when there is none or it cannot be read.
func (g *Generator) previousCount(logger *slog.Logger, path string) int {
	entries, err := compdb.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Existing database is unreadable, replacing it", "path", path, "error", err)
		}
		return -1
	}
	return len(entries)
}

func (g *Generator) progress(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(g.out, format+"\n", args...)
}
