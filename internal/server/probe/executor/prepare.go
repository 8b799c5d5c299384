package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Executable is a payload written to disk and marked runnable.
type Executable struct {
	Path string
}

// Remove deletes the executable. A file that is already gone is not an error.
func (e *Executable) Remove() error {
	if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type FilePreparer struct{}

func NewPreparer() *FilePreparer {
	return &FilePreparer{}
}

// Prepare writes payload next to destination and renames it into place, so an
// existing file at destination is replaced whole or not at all.
func (p *FilePreparer) Prepare(payload []byte, destination string) (*Executable, error) {
	target := executablePath(destination)

	tmp, err := os.CreateTemp(filepath.Dir(target), ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create executable: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return nil, fmt.Errorf("failed to write executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to close executable: %w", err)
	}
	if err := os.Chmod(tmpName, executableMode); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to mark executable: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to move executable into place: %w", err)
	}

	return &Executable{Path: target}, nil
}

// ResolveWorkDir makes sure dir exists and that the probe can create files in it.
func ResolveWorkDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	f, err := os.CreateTemp(abs, ".probe-check-*")
	if err != nil {
		return "", fmt.Errorf("work directory %s is not writable: %w", abs, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return abs, nil
}
