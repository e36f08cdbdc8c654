package converter

// workspace.go: per-job scratch directories for rasterized pages.
//
// Every job gets <base>/<jobID>, created with os.Mkdir so two jobs can never
// end up sharing one. Release is best-effort: by the time it runs the job's
// outcome is already decided, so failures are only logged.

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// removeAll is the os.RemoveAll implementation used by Release and Sweep.
// Tests may replace it to simulate an undeletable workspace.
var removeAll = os.RemoveAll

// Workspaces allocates and reclaims job workspaces under a base directory.
type Workspaces struct {
	base   string
	logger *slog.Logger
}

// NewWorkspaces returns a manager rooted at base. The directory is created
// lazily on the first Acquire.
func NewWorkspaces(base string, logger *slog.Logger) *Workspaces {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspaces{base: base, logger: logger}
}

// Base returns the directory holding all workspaces.
func (w *Workspaces) Base() string { return w.base }

// Acquire creates a fresh, empty directory keyed by jobID.
func (w *Workspaces) Acquire(jobID string) (string, error) {
	if jobID == "" || jobID == "." || jobID == ".." || strings.ContainsAny(jobID, `/\`) {
		return "", fmt.Errorf("%w: invalid job id %q", ErrWorkspaceCreation, jobID)
	}
	if err := os.MkdirAll(w.base, 0o755); err != nil {
		return "", fmt.Errorf("%w: create base %s: %w", ErrWorkspaceCreation, w.base, err)
	}
	dir := filepath.Join(w.base, jobID)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: create %s: %w", ErrWorkspaceCreation, dir, err)
	}
	return dir, nil
}

// Release recursively deletes a workspace. Errors are logged, never returned.
func (w *Workspaces) Release(dir string) {
	if err := removeAll(dir); err != nil {
		w.logger.Error("workspace cleanup failed", "workspace", dir, "error", err)
		return
	}
	w.logger.Debug("workspace removed", "workspace", dir)
}

// Sweep removes workspaces older than maxAge, typically left behind by a
// process that died mid-job. Only directories named like a default job id
// (a canonical uuid) are considered, so anything else sharing the base is
// left alone. It returns how many were removed. A maxAge of zero or less
// disables the sweep.
func (w *Workspaces) Sweep(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	entries, err := os.ReadDir(w.base)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("workspace sweep: list failed", "base", w.base, "error", err)
		}
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !isJobID(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(w.base, e.Name())
		if err := removeAll(dir); err != nil {
			w.logger.Error("workspace sweep: remove failed", "workspace", dir, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		w.logger.Info("removed stale workspaces", "count", removed, "base", w.base)
	}
	return removed
}

// isJobID reports whether name is a uuid in its canonical 36-character form,
// as produced by uuid.NewString.
func isJobID(name string) bool {
	if len(name) != 36 {
		return false
	}
	_, err := uuid.Parse(name)
	return err == nil
}
