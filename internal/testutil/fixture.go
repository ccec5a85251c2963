// Package testutil provides testing utilities for golden tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestdataPath returns the absolute path of a file under the repository's
// testdata/ directory, failing the test if it cannot be located.
func TestdataPath(t *testing.T, elems ...string) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	root := filepath.Join(projectRoot, "testdata")

	if _, err := os.Stat(root); os.IsNotExist(err) {
		t.Fatalf("Testdata root not found: %s", root)
	}

	return filepath.Join(append([]string{root}, elems...)...)
}

// TracePath returns the path of a saved aquery trace in testdata/traces.
func TracePath(t *testing.T, name string) string {
	t.Helper()

	path := TestdataPath(t, "traces", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Trace fixture not found: %s", path)
	}
	return path
}

// GoldenPath returns the path of a golden file in testdata/golden.
func GoldenPath(t *testing.T, name string) string {
	t.Helper()
	return TestdataPath(t, "golden", name)
}
