package usecase

import (
	"context"

	"github.com/Alwanly/detect-probe/internal/models"
	"github.com/Alwanly/detect-probe/pkg/poll"
)

// IUseCase defines the probe's loop controller
type IUseCase interface {
	// Register enrolls the endpoint and returns its probe token
	Register(ctx context.Context, accountID, accountSecret, name string) (string, error)
	// Cycle polls once, reporting pending, and executes any returned task
	Cycle(ctx context.Context, pending *models.ReportedStatus) (next *models.ReportedStatus, more bool)
	// ExecuteTask runs the run and clean phases of task and combines them
	ExecuteTask(ctx context.Context, task *models.Task) models.ReportedStatus
	// Run drives Cycle with p until ctx is done or p is stopped
	Run(ctx context.Context, p poll.Poller) error
}
