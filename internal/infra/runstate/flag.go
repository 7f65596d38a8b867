package runstate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/beanloop/internal/domain"
)

// Flag is the pause toggle, backed by a marker file so a separate beanloop
// invocation can flip it while a run is in flight.
type Flag struct {
	path string
}

// NewFlag creates a Flag for the given loop state directory.
func NewFlag(loopDir string) *Flag {
	return &Flag{path: domain.PausePath(loopDir)}
}

// IsPaused reports whether the flag file exists.
func (f *Flag) IsPaused() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Set creates the flag file.
func (f *Flag) Set() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(f.path, nil, 0o600); err != nil {
		return fmt.Errorf("write pause flag: %w", err)
	}
	return nil
}

// Clear removes the flag file. Clearing an unset flag is a no-op.
func (f *Flag) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pause flag: %w", err)
	}
	return nil
}

// Ensure Flag implements PauseFlag.
var _ domain.PauseFlag = (*Flag)(nil)
