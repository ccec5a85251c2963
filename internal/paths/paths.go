package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"compdb/internal/errors"
)

// WorkspaceEnvVar is set by `bazel run` to the workspace the user invoked
// bazel from.
const WorkspaceEnvVar = "BUILD_WORKSPACE_DIRECTORY"

// WorkingDirEnvVar is set by `bazel run` to the directory the user invoked
// bazel from, which is not the process working directory under bazel run.
const WorkingDirEnvVar = "BUILD_WORKING_DIRECTORY"

// ResolveWorkspace picks the workspace directory: the explicit flag value
// first, then the value bazel run supplied. The result is absolute and must
// be an existing directory.
func ResolveWorkspace(flagValue, envValue string) (string, error) {
	workspace := flagValue
	if workspace == "" {
		workspace = envValue
	}
	if workspace == "" {
		return "", errors.New(errors.WorkspaceMissing,
			"no workspace directory: pass --workspace or run through `bazel run` (which sets %s)", WorkspaceEnvVar)
	}

	abs, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace %s: %w", workspace, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Wrap(errors.WorkspaceMissing, err, "workspace %s is not accessible", abs)
	}
	if !info.IsDir() {
		return "", errors.New(errors.WorkspaceMissing, "workspace %s is not a directory", abs)
	}
	return abs, nil
}

// OutputPath resolves the database file against the workspace. Absolute
// paths are kept as they are.
func OutputPath(workspace, file string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(workspace, file)
}

// InputPath resolves a file named on the command line. Relative paths are
// taken relative to workingDir, or to the process working directory when
// workingDir is empty.
func InputPath(workingDir, file string) (string, error) {
	if filepath.IsAbs(file) {
		return filepath.Clean(file), nil
	}
	if workingDir != "" {
		return filepath.Join(workingDir, file), nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	return abs, nil
}

// DisplayPath renders path relative to the workspace with forward slashes
// when it lies inside it, and unchanged otherwise.
func DisplayPath(path, workspace string) string {
	if !IsWithinWorkspace(path, workspace) {
		return path
	}
	rel, _ := filepath.Rel(workspace, path)
	return filepath.ToSlash(rel)
}

// IsWithinWorkspace checks if a path is within the workspace
func IsWithinWorkspace(path, workspace string) bool {
	rel, err := filepath.Rel(workspace, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
