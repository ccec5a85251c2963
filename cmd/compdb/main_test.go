package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"compdb/internal/config"
	"compdb/internal/errors"
	"compdb/internal/testutil"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(resetFlags)
	t.Setenv("BUILD_WORKSPACE_DIRECTORY", "")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags() {
	workspaceFlag, verboseFlag, quietFlag, logFormatFlag, logFileFlag = "", 0, false, "", ""
	generateTrace, generateExecutionRoot, generateOutput, generateExclude = "", "", "", nil
	configFormat, configShowDiff, configInitForce = "human", false, false
	if f := rootCmd.Flags().Lookup("version"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}
}

func TestGenerate_FromTrace(t *testing.T) {
	workspace := t.TempDir()

	stdout, _, err := execute(t, "generate",
		"--workspace", workspace,
		"--trace", testutil.TracePath(t, "simple.json"),
		"--execution-root", "/execroot/_main")
	if err != nil {
		t.Fatalf("generate error = %v", err)
	}
	if !strings.HasSuffix(stdout, "Writing 3 entries to compile_commands.json...\nDone.\n") {
		t.Errorf("stdout = %q", stdout)
	}

	data, err := os.ReadFile(filepath.Join(workspace, "compile_commands.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	testutil.CompareGolden(t, "simple.json", data)
}

func TestGenerate_TraceRelativeToInvocation(t *testing.T) {
	workspace := t.TempDir()
	trace := testutil.TracePath(t, "simple.json")

	t.Setenv("BUILD_WORKING_DIRECTORY", "")
	if _, _, err := execute(t, "generate",
		"--workspace", workspace,
		"--trace", filepath.Base(trace),
		"--execution-root", "/execroot/_main"); err == nil {
		t.Fatal("generate should not find the trace in the process directory")
	}

	t.Setenv("BUILD_WORKING_DIRECTORY", filepath.Dir(trace))
	stdout, _, err := execute(t, "generate",
		"--workspace", workspace,
		"--trace", filepath.Base(trace),
		"--execution-root", "/execroot/_main")
	if err != nil {
		t.Fatalf("generate error = %v", err)
	}
	if !strings.Contains(stdout, "Reading "+trace+"...") {
		t.Errorf("stdout = %q, want the trace read from %s", stdout, trace)
	}

	data, err := os.ReadFile(filepath.Join(workspace, "compile_commands.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	testutil.CompareGolden(t, "simple.json", data)
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("--version error = %v", err)
	}
	for _, want := range []string{"compdb version ", "Commit: ", "Built: "} {
		if !strings.Contains(stdout, want) {
			t.Errorf("--version output = %q, missing %q", stdout, want)
		}
	}
}

func TestGenerate_JSONLogsAndLogFile(t *testing.T) {
	workspace := t.TempDir()
	logFile := filepath.Join(t.TempDir(), "compdb.log")

	_, stderr, err := execute(t, "generate", "-v",
		"--log-format", "json",
		"--log-file", logFile,
		"--workspace", workspace,
		"--trace", testutil.TracePath(t, "simple.json"),
		"--execution-root", "/execroot/_main",
		"--exclude", "external/**")
	if err != nil {
		t.Fatalf("generate error = %v", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("stderr line is not JSON: %q", line)
		}
		if record["run_id"] == nil {
			t.Errorf("record without run_id: %q", line)
		}
	}

	logged, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(logged), `"msg":"Excluded entries"`) {
		t.Errorf("log file does not record the exclusion: %s", logged)
	}
}

func TestGenerate_WorkspaceMissing(t *testing.T) {
	_, _, err := execute(t, "generate", "//...")
	if !errors.HasCode(err, errors.WorkspaceMissing) {
		t.Fatalf("generate error = %v, want %s", err, errors.WorkspaceMissing)
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	workspace := t.TempDir()
	t.Setenv("COMPDB_COMPILERS_CEXTENSIONS", "c")

	_, _, err := execute(t, "generate", "--workspace", workspace, "--trace", testutil.TracePath(t, "simple.json"))
	if !errors.HasCode(err, errors.ConfigInvalid) {
		t.Fatalf("generate error = %v, want %s", err, errors.ConfigInvalid)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	workspace := t.TempDir()

	stdout, _, err := execute(t, "config", "init", "--workspace", workspace)
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(stdout, config.Path(workspace)) {
		t.Errorf("stdout = %q, should name the written file", stdout)
	}

	if _, _, err := execute(t, "config", "init", "--workspace", workspace); err == nil {
		t.Error("config init should refuse to overwrite without --force")
	}

	t.Setenv("COMPDB_COMPILERS_C", "gcc")
	stdout, _, err = execute(t, "config", "show", "--workspace", workspace, "--format", "json", "--diff")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}

	var resp ConfigShowResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("config show output is not JSON: %v\n%s", err, stdout)
	}
	if resp.UsedDefaults {
		t.Error("UsedDefaults should be false after config init")
	}
	if !reflect.DeepEqual(resp.Config, map[string]interface{}{"compilers.c": "gcc"}) {
		t.Errorf("diff = %v, want only compilers.c", resp.Config)
	}
	if len(resp.EnvOverrides) != 1 || resp.EnvOverrides[0].Var != "COMPDB_COMPILERS_C" {
		t.Errorf("EnvOverrides = %+v", resp.EnvOverrides)
	}
}

func TestConfigShow_Human(t *testing.T) {
	stdout, _, err := execute(t, "config", "show", "--workspace", t.TempDir())
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	for _, want := range []string{
		"Source: defaults (no config file found)",
		"compilers.cxx: clang++",
		"output.exclude: []",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config show output missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigShow_YAML(t *testing.T) {
	t.Setenv("COMPDB_BAZEL_BINARY", "bazelisk")

	stdout, _, err := execute(t, "config", "show", "--workspace", t.TempDir(), "--format", "yaml")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}

	var resp struct {
		UsedDefaults bool                   `yaml:"usedDefaults"`
		Config       map[string]interface{} `yaml:"config"`
	}
	if err := yaml.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("config show output is not YAML: %v\n%s", err, stdout)
	}
	if !resp.UsedDefaults {
		t.Error("UsedDefaults should be true without a config file")
	}
	if resp.Config["bazel.binary"] != "bazelisk" {
		t.Errorf("bazel.binary = %v, want bazelisk", resp.Config["bazel.binary"])
	}
}

func TestConfigShow_TOMLRoundTrip(t *testing.T) {
	stdout, _, err := execute(t, "config", "show", "--workspace", t.TempDir(), "--format", "toml")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("config show output is not TOML: %v\n%s", err, stdout)
	}
	want := config.DefaultConfig()
	if cfg.Bazel.TargetFilter != want.Bazel.TargetFilter || !reflect.DeepEqual(cfg.Bazel.QueryFlags, want.Bazel.QueryFlags) {
		t.Errorf("bazel section = %+v, want %+v", cfg.Bazel, want.Bazel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("printed config does not validate: %v", err)
	}
}

func TestConfigShow_UnknownFormat(t *testing.T) {
	if _, _, err := execute(t, "config", "show", "--workspace", t.TempDir(), "--format", "xml"); err == nil {
		t.Fatal("config show --format xml should fail")
	}
}

func TestConfigEnv(t *testing.T) {
	var buf bytes.Buffer
	printConfigEnv(&buf)

	for _, key := range config.Keys() {
		if !strings.Contains(buf.String(), config.EnvVar(key)) {
			t.Errorf("config env output missing %s", config.EnvVar(key))
		}
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		dash        int
		wantTargets []string
		wantBazel   []string
	}{
		{"no separator", []string{"//a", "//b"}, -1, []string{"//a", "//b"}, nil},
		{"separator", []string{"//a", "--config=windows"}, 1, []string{"//a"}, []string{"--config=windows"}},
		{"only bazel args", []string{"-c", "opt"}, 0, []string{}, []string{"-c", "opt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, bazelArgs := splitArgs(tt.args, tt.dash)
			if !reflect.DeepEqual(targets, tt.wantTargets) {
				t.Errorf("targets = %q, want %q", targets, tt.wantTargets)
			}
			if !reflect.DeepEqual(bazelArgs, tt.wantBazel) {
				t.Errorf("bazelArgs = %q, want %q", bazelArgs, tt.wantBazel)
			}
		})
	}
}

func TestPrintError(t *testing.T) {
	err := errors.New(errors.WorkspaceMissing, "no workspace directory").
		WithDetails(map[string]string{"cwd": "/tmp"})

	var buf bytes.Buffer
	printError(&buf, err)

	out := buf.String()
	for _, want := range []string{
		"Error: [WORKSPACE_MISSING] no workspace directory",
		`"cwd": "/tmp"`,
		"Suggested fixes:",
		"(--workspace)",
		"bazel run",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printError output missing %q:\n%s", want, out)
		}
	}
}

func TestIsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"equal strings", "clang", "clang", true},
		{"different strings", "clang", "gcc", false},
		{"nil and empty list", []string(nil), []string{}, true},
		{"different lists", []string{".c"}, []string{".c", ".m"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("isEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
