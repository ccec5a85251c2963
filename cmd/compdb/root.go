package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"compdb/internal/config"
	"compdb/internal/errors"
	"compdb/internal/paths"
	"compdb/internal/slogutil"
	"compdb/internal/version"
)

var (
	workspaceFlag string
	verboseFlag   int
	quietFlag     bool
	logFormatFlag string
	logFileFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "compdb",
	Short: "compdb - compile_commands.json for Bazel workspaces",
	Long: `compdb turns the C and C++ compile actions of a Bazel build into a
compile_commands.json that clangd and other tools understand.

It queries the action graph with bazel aquery, resolves the source file of
every compile action and writes one entry per action.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "",
		"Workspace directory (default: $"+paths.WorkspaceEnvVar+")")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: human or json (default: logging.format)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Also write debug logs as JSON to this file")
}

// resolveWorkspace applies the --workspace flag, falling back to the
// directory bazel run reports.
func resolveWorkspace() (string, error) {
	return paths.ResolveWorkspace(workspaceFlag, os.Getenv(paths.WorkspaceEnvVar))
}

// loadConfig loads and validates the workspace configuration.
func loadConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadConfig(workspace)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, err, "cannot load %s", config.Path(workspace))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, err, "invalid configuration")
	}
	return cfg, nil
}

// logLevel picks the level from the verbosity flags when given, otherwise
// from logging.level.
func logLevel(cfg *config.Config) slog.Level {
	if verboseFlag > 0 || quietFlag {
		return slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	}
	return slogutil.LevelFromString(cfg.Logging.Level)
}

// newLogger builds the command logger on w. The returned function closes
// the log file, if any.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, func(), error) {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	handler := slogutil.NewHandler(w, logLevel(cfg), format)

	if logFileFlag == "" {
		return slog.New(handler), func() {}, nil
	}

	fileHandler, f, err := slogutil.OpenLogFile(logFileFlag, slog.LevelDebug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slogutil.NewTeeLogger(handler, fileHandler), func() { _ = f.Close() }, nil
}

// printError reports err with the suggested fixes and details of coded
// errors.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var ce *errors.CompdbError
	if !stderrors.As(err, &ce) {
		return
	}

	if ce.Details != nil {
		if details, mErr := json.MarshalIndent(ce.Details, "", "  "); mErr == nil {
			fmt.Fprintf(w, "\nDetails:\n%s\n", details)
		}
	}

	if len(ce.SuggestedFixes) > 0 {
		fmt.Fprintln(w, "\nSuggested fixes:")
		for _, fix := range ce.SuggestedFixes {
			switch {
			case fix.Command != "":
				fmt.Fprintf(w, "  - %s: %s\n", fix.Description, fix.Command)
			case fix.Flag != "":
				fmt.Fprintf(w, "  - %s (%s)\n", fix.Description, fix.Flag)
			default:
				fmt.Fprintf(w, "  - %s\n", fix.Description)
			}
		}
	}
}
