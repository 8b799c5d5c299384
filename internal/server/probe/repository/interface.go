package repository

import (
	"context"
	"time"

	"github.com/Alwanly/detect-probe/internal/models"
)

// IServiceClient defines the interface for communicating with the detection service
type IServiceClient interface {
	// Poll reports the previous result (if any) and requests the next task
	Poll(ctx context.Context, previous *models.ReportedStatus) (models.PollResult, error)
	// Register enrolls this endpoint and returns its probe token
	Register(ctx context.Context, accountID, accountSecret, name string) (string, error)
}

// IRepository keeps the in-memory view of what the probe is doing
type IRepository interface {
	RecordPoll(at time.Time, result models.PollResult, err error)
	RecordTask(at time.Time, resource string, status models.ReportedStatus, elapsed time.Duration)
	Snapshot() State
}
