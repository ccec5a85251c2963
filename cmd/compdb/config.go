package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"compdb/internal/config"
)

var (
	configFormat    string
	configShowDiff  bool
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage compdb configuration",
	Long:  "View and manage compdb configuration stored in .compdb/config.toml",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective compdb configuration.

Examples:
  compdb config show                # Pretty-print current config
  compdb config show --format json  # Raw JSON output
  compdb config show --format yaml  # YAML output
  compdb config show --format toml  # Effective config as a config.toml
  compdb config show --diff         # Only show non-default values`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  runConfigInit,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported COMPDB_* environment variable overrides",
	Run: func(cmd *cobra.Command, args []string) {
		printConfigEnv(cmd.OutOrStdout())
	},
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (human, json, yaml, toml)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty" yaml:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults" yaml:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty" yaml:"envOverrides,omitempty"`
	Config       map[string]interface{} `json:"config" yaml:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	workspace, err := resolveWorkspace()
	if err != nil {
		return err
	}

	result, err := config.LoadConfigWithDetails(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	w := cmd.OutOrStdout()
	switch configFormat {
	case "json", "yaml":
		return outputConfigStructured(w, configFormat, result, configShowDiff)
	case "toml":
		return outputConfigTOML(w, result.Config)
	case "human":
		outputConfigHuman(w, result, configShowDiff)
		return nil
	default:
		return fmt.Errorf("unknown format %q (use human, json, yaml or toml)", configFormat)
	}
}

func outputConfigStructured(w io.Writer, format string, result *config.LoadResult, diffOnly bool) error {
	values := result.Config.Values()
	if diffOnly {
		values = computeDiff(values, config.DefaultConfig().Values())
	}
	response := ConfigShowResponse{
		ConfigPath:   result.ConfigPath,
		UsedDefaults: result.UsedDefaults,
		EnvOverrides: result.EnvOverrides,
		Config:       values,
	}

	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(response); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
		return enc.Close()
	}

	output, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// outputConfigTOML prints the effective configuration in the layout of
// config.toml so it can be pasted into the file.
func outputConfigTOML(w io.Writer, cfg *config.Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}

func outputConfigHuman(w io.Writer, result *config.LoadResult, diffOnly bool) {
	fmt.Fprintln(w, "compdb Configuration")
	fmt.Fprintln(w, strings.Repeat("─", 50))

	if result.UsedDefaults {
		fmt.Fprintln(w, "Source: defaults (no config file found)")
	} else if result.ConfigPath != "" {
		fmt.Fprintf(w, "Source: %s\n", result.ConfigPath)
	}

	if len(result.EnvOverrides) > 0 {
		fmt.Fprintln(w, "\nEnvironment Overrides:")
		for _, ov := range result.EnvOverrides {
			fmt.Fprintf(w, "  %s=%s → %s\n", ov.Var, ov.Value, ov.Key)
		}
	}
	fmt.Fprintln(w)

	values := result.Config.Values()
	defaults := config.DefaultConfig().Values()

	printed := 0
	for _, key := range config.Keys() {
		modified := !isEqual(values[key], defaults[key])
		if diffOnly && !modified {
			continue
		}
		line := fmt.Sprintf("%s: %v", key, formatValue(values[key]))
		if modified {
			line += fmt.Sprintf(" (default: %v)", formatValue(defaults[key]))
		}
		fmt.Fprintln(w, line)
		printed++
	}
	if diffOnly && printed == 0 {
		fmt.Fprintln(w, "  (no modifications - using all defaults)")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use 'compdb config show --format toml' for a pasteable config.toml")
	fmt.Fprintln(w, "Use 'compdb config env' to see supported environment variables")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	workspace, err := resolveWorkspace()
	if err != nil {
		return err
	}

	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(workspace); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func printConfigEnv(w io.Writer) {
	fmt.Fprintln(w, "Supported compdb Environment Variables")
	fmt.Fprintln(w, strings.Repeat("─", 50))
	fmt.Fprintln(w)

	defaults := config.DefaultConfig().Values()
	for _, key := range config.Keys() {
		fmt.Fprintf(w, "  %-30s %s (default: %v)\n", config.EnvVar(key), key, formatValue(defaults[key]))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "List values are comma-separated, e.g. COMPDB_OUTPUT_EXCLUDE=external/**,third_party/**")
}

// computeDiff returns the entries of values that differ from defaults.
func computeDiff(values, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for key, value := range values {
		if !isEqual(value, defaults[key]) {
			diff[key] = value
		}
	}
	return diff
}

// isEqual compares rendered values so a nil list equals an empty one.
func isEqual(a, b interface{}) bool {
	return formatValue(a) == formatValue(b)
}

func formatValue(v interface{}) string {
	if list, ok := v.([]string); ok {
		if len(list) == 0 {
			return "[]"
		}
		return "[" + strings.Join(list, ", ") + "]"
	}
	return fmt.Sprint(v)
}
