// Package e2e runs the viewer feature files against a live oCIS.
package e2e

import (
	"path/filepath"
	"runtime"
)

func repositoryRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot resolve repository root from tests/e2e")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
}

// resolveFromRoot anchors a relative path at the repository root so the
// suite works no matter which directory go test runs in.
func resolveFromRoot(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repositoryRoot(), path)
}
