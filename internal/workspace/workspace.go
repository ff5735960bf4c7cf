// Package workspace manages the ephemeral per-execution directory that holds
// the submitted source file.
//
// Each execution gets its own directory, owned exclusively by that execution
// and removed on every exit path — the executor defers Cleanup immediately
// after a successful Create, so a workspace can never outlive the call that
// created it. The directory is bind-mounted read-only into the container;
// nothing the sandboxed code does can write back to the host through it.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is an ephemeral directory containing one source file.
type Workspace struct {
	root       string
	sourcePath string
}

// Create allocates a fresh directory under parent (os.TempDir() when parent
// is empty) and writes code to the given filename inside it.
//
// On any I/O failure the partially created directory is removed and an error
// is returned; no container is ever spawned for a workspace that failed to
// materialise.
func Create(parent, filename string, code []byte) (*Workspace, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("workspace: creating parent dir: %w", err)
		}
	}

	root, err := os.MkdirTemp(parent, "exec-*")
	if err != nil {
		return nil, fmt.Errorf("workspace: creating directory: %w", err)
	}

	sourcePath := filepath.Join(root, filename)
	// 0644 so the container user (not necessarily root) can read the source.
	if err := os.WriteFile(sourcePath, code, 0o644); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("workspace: writing source file: %w", err)
	}

	return &Workspace{root: root, sourcePath: sourcePath}, nil
}

// Root returns the host path of the workspace directory.
func (w *Workspace) Root() string { return w.root }

// SourcePath returns the host path of the written source file.
func (w *Workspace) SourcePath() string { return w.sourcePath }

// Cleanup removes the workspace directory and everything in it.
// Safe to call more than once.
func (w *Workspace) Cleanup() error {
	return os.RemoveAll(w.root)
}
