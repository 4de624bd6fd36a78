package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/backmassage/loopforge/internal/logging"
	"github.com/backmassage/loopforge/internal/naming"
)

// Workspace is the scratch directory of one item. Every intermediate file
// of the item lives inside it and goes away with Close.
type Workspace struct {
	Dir string
	log *logging.Logger
}

// NewWorkspace creates <root>/tmp_<stem>_<uuid8> for input.
func NewWorkspace(root, input string, log *logging.Logger) (*Workspace, error) {
	id := uuid.NewString()[:8]
	dir := filepath.Join(root, naming.WorkspaceName(input, id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Dir: dir, log: log}, nil
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Close removes the workspace. Failures are logged, never returned: the
// item's outcome is already decided when Close runs.
func (w *Workspace) Close() {
	if err := os.RemoveAll(w.Dir); err != nil && w.log != nil {
		w.log.Warn("Could not remove workspace %s: %v", w.Dir, err)
	}
}

const lockName = ".loopforge.lock"

// lockOutputDir takes an exclusive lock on dir so that two batches never
// write into the same output directory. The returned func releases it.
func lockOutputDir(dir string) (func(), error) {
	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, &ResourceError{Resource: "output directory lock", Path: dir, Err: err}
	}
	if !ok {
		return nil, &ResourceError{Resource: "output directory", Path: dir, Err: fmt.Errorf("in use by another loopforge run")}
	}
	return func() { _ = lock.Unlock() }, nil
}
