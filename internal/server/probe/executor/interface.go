package executor

import "github.com/Alwanly/detect-probe/internal/models"

// IPreparer turns a downloaded payload into a file the OS will run
type IPreparer interface {
	Prepare(payload []byte, destination string) (*Executable, error)
}

// IRunner runs an executable once with a bounded wall-clock time
type IRunner interface {
	Run(exe *Executable, args []string) models.ExecutionOutcome
}
