package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"compdb/internal/bazel"
	"compdb/internal/generate"
	"compdb/internal/paths"
)

var (
	generateTrace         string
	generateExecutionRoot string
	generateOutput        string
	generateExclude       []string
)

var generateCmd = &cobra.Command{
	Use:   "generate [targets...] [-- bazel-args...]",
	Short: "Generate compile_commands.json",
	Long: `Query the compile actions of the given targets and write one
compile_commands.json entry per action.

Arguments after -- are passed to bazel aquery unchanged.

Examples:
  compdb generate //...
  compdb generate //src:main //lib/... -- --config=windows
  bazel run //tools:compdb -- //...
  compdb generate --trace aquery.json.zst --execution-root /path/to/execroot`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateTrace, "trace", "",
		"Read a saved `bazel aquery --output=jsonproto` result (plain, gzip or zstd) instead of running bazel; relative to the invoking directory")
	generateCmd.Flags().StringVar(&generateExecutionRoot, "execution-root", "",
		"Execution root to write into every entry (default: bazel info execution_root)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "",
		"Database path, relative to the workspace (default: output.file)")
	generateCmd.Flags().StringSliceVar(&generateExclude, "exclude", nil,
		"Drop entries whose file matches this glob (repeatable)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	targets, bazelArgs := splitArgs(args, cmd.ArgsLenAtDash())

	workspace, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	trace := generateTrace
	if trace != "" {
		if trace, err = paths.InputPath(os.Getenv(paths.WorkingDirEnvVar), trace); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := generate.New(cfg, bazel.NewExecRunner(), cmd.OutOrStdout(), logger)
	_, err = gen.Run(ctx, generate.Options{
		Workspace:     workspace,
		ExecutionRoot: generateExecutionRoot,
		TracePath:     trace,
		Targets:       targets,
		BazelArgs:     bazelArgs,
		Output:        generateOutput,
		Exclude:       generateExclude,
	})
	return err
}

// splitArgs separates target patterns from the bazel arguments following
// "--". dash is the position cobra reports, or -1 without a separator.
func splitArgs(args []string, dash int) (targets, bazelArgs []string) {
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}
