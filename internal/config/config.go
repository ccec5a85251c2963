package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version this build understands.
const CurrentVersion = 1

const (
	// Dir is the per-workspace configuration directory.
	Dir = ".compdb"
	// FileName is the configuration file inside Dir.
	FileName = "config.toml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "COMPDB"
)

// Config represents the complete compdb configuration
type Config struct {
	Version   int             `json:"version" toml:"version" mapstructure:"version"`
	Bazel     BazelConfig     `json:"bazel" toml:"bazel" mapstructure:"bazel"`
	Compilers CompilersConfig `json:"compilers" toml:"compilers" mapstructure:"compilers"`
	Output    OutputConfig    `json:"output" toml:"output" mapstructure:"output"`
	Logging   LoggingConfig   `json:"logging" toml:"logging" mapstructure:"logging"`
}

// BazelConfig controls how the action graph is queried
type BazelConfig struct {
	Binary       string   `json:"binary" toml:"binary" mapstructure:"binary"`
	Mnemonic     string   `json:"mnemonic" toml:"mnemonic" mapstructure:"mnemonic"`
	TargetFilter string   `json:"targetFilter" toml:"targetFilter" mapstructure:"targetFilter"`
	QueryFlags   []string `json:"queryFlags" toml:"queryFlags" mapstructure:"queryFlags"`
}

// CompilersConfig selects the compiler name written for each source file
type CompilersConfig struct {
	C           string   `json:"c" toml:"c" mapstructure:"c"`
	CXX         string   `json:"cxx" toml:"cxx" mapstructure:"cxx"`
	CExtensions []string `json:"cExtensions" toml:"cExtensions" mapstructure:"cExtensions"`
}

// OutputConfig controls the generated database
type OutputConfig struct {
	File    string   `json:"file" toml:"file" mapstructure:"file"`
	Exclude []string `json:"exclude" toml:"exclude" mapstructure:"exclude"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" toml:"format" mapstructure:"format"`
	Level  string `json:"level" toml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Bazel: BazelConfig{
			Binary:       "bazel",
			Mnemonic:     "CppCompile",
			TargetFilter: "^//",
			QueryFlags: []string{
				"--noshow_progress",
				"--ui_event_filters=-info",
				"--output=jsonproto",
				"--features=-compiler_param_file",
			},
		},
		Compilers: CompilersConfig{
			C:           "clang",
			CXX:         "clang++",
			CExtensions: []string{".c"},
		},
		Output: OutputConfig{
			File:    "compile_commands.json",
			Exclude: []string{},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// Values flattens the configuration into its dotted keys.
func (c *Config) Values() map[string]interface{} {
	return map[string]interface{}{
		"version":               c.Version,
		"bazel.binary":          c.Bazel.Binary,
		"bazel.mnemonic":        c.Bazel.Mnemonic,
		"bazel.targetFilter":    c.Bazel.TargetFilter,
		"bazel.queryFlags":      c.Bazel.QueryFlags,
		"compilers.c":           c.Compilers.C,
		"compilers.cxx":         c.Compilers.CXX,
		"compilers.cExtensions": c.Compilers.CExtensions,
		"output.file":           c.Output.File,
		"output.exclude":        c.Output.Exclude,
		"logging.format":        c.Logging.Format,
		"logging.level":         c.Logging.Level,
	}
}

// defaults flattens DefaultConfig into viper keys.
func defaults() map[string]interface{} {
	return DefaultConfig().Values()
}

// Keys returns every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults()))
	for k := range defaults() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// EnvOverride records a key whose value came from the environment
type EnvOverride struct {
	Key   string `json:"key"`
	Var   string `json:"var"`
	Value string `json:"value"`
}

// LoadResult is a loaded configuration and where it came from
type LoadResult struct {
	Config       *Config       `json:"config"`
	ConfigPath   string        `json:"configPath,omitempty"`
	UsedDefaults bool          `json:"usedDefaults"`
	EnvOverrides []EnvOverride `json:"envOverrides,omitempty"`
}

// Path returns the configuration file path for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, Dir, FileName)
}

// LoadConfig loads configuration from <workspace>/.compdb/config.toml with
// COMPDB_* environment overrides applied on top.
func LoadConfig(workspace string) (*Config, error) {
	result, err := LoadConfigWithDetails(workspace)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads configuration like LoadConfig and reports the
// file used and the environment overrides in effect.
func LoadConfigWithDetails(workspace string) (*LoadResult, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(workspace, Dir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	result := &LoadResult{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		result.UsedDefaults = true
	} else {
		result.ConfigPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	result.Config = &cfg

	for _, key := range Keys() {
		name := EnvVar(key)
		if value, ok := os.LookupEnv(name); ok {
			result.EnvOverrides = append(result.EnvOverrides, EnvOverride{Key: key, Var: name, Value: value})
		}
	}

	return result, nil
}

// Save writes the configuration to <workspace>/.compdb/config.toml
func (c *Config) Save(workspace string) error {
	if err := os.MkdirAll(filepath.Join(workspace, Dir), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(Path(workspace))
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}

	required := []struct {
		field string
		value string
	}{
		{"bazel.binary", c.Bazel.Binary},
		{"bazel.mnemonic", c.Bazel.Mnemonic},
		{"compilers.c", c.Compilers.C},
		{"compilers.cxx", c.Compilers.CXX},
		{"output.file", c.Output.File},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ConfigError{Field: r.field, Message: "must not be empty"}
		}
	}

	for _, ext := range c.Compilers.CExtensions {
		if !strings.HasPrefix(ext, ".") {
			return &ConfigError{Field: "compilers.cExtensions", Message: fmt.Sprintf("extension %q must start with a dot", ext)}
		}
	}

	for _, pattern := range c.Output.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Field: "output.exclude", Message: fmt.Sprintf("invalid pattern %q", pattern)}
		}
	}

	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
