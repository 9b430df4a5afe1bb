// Package workspace manages the scratch directory owned by one pipeline
// invocation. Each workspace has a unique name, so concurrent invocations
// never share intermediate files, and Close removes it on every exit path.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// dirPrefix names workspace directories inside the parent directory.
const dirPrefix = "pdfstitch-"

// dirPermissions keeps scratch files private to the owner.
const dirPermissions = 0o700

// ErrClosed is returned when a closed workspace is used.
var ErrClosed = errors.New("workspace is closed")

// Workspace is an invocation-scoped scratch directory.
type Workspace struct {
	dir    string
	keep   bool
	mu     sync.Mutex
	closed bool
}

// New creates a uniquely named workspace under parent. An empty parent
// means os.TempDir(). The parent is created if absent.
func New(parent string) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating workspace parent: %w", err)
	}
	dir := filepath.Join(parent, dirPrefix+uuid.NewString())
	// Mkdir, not MkdirAll: an existing directory must never be adopted.
	if err := os.Mkdir(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// KeepOnClose leaves the directory in place when Close is called. Used for
// debugging engine output.
func (w *Workspace) KeepOnClose() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keep = true
}

// WriteFile stores data under name inside the workspace.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	if err := w.check(); err != nil {
		return "", err
	}
	path := w.Path(filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// RemovePrefix deletes every regular file whose name starts with prefix.
// Used to drop partial output of a failed render attempt.
func (w *Workspace) RemovePrefix(prefix string) error {
	if err := w.check(); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("listing workspace: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := os.Remove(w.Path(e.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close removes the workspace and everything in it, unless KeepOnClose was
// called. Safe to call more than once.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.keep {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("removing workspace: %w", err)
	}
	return nil
}

func (w *Workspace) check() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}
