package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Alwanly/detect-probe/internal/models"
	"github.com/Alwanly/detect-probe/internal/server/probe/executor"
	"github.com/Alwanly/detect-probe/internal/server/probe/repository"
	"github.com/Alwanly/detect-probe/pkg/logger"
	"github.com/Alwanly/detect-probe/pkg/poll"
)

const (
	PhaseRun   = "run"
	PhaseClean = "clean"
)

var cleanArgs = []string{"clean"}

type UseCase struct {
	client   repository.IServiceClient
	repo     repository.IRepository
	preparer executor.IPreparer
	runner   executor.IRunner
	workDir  string
	logger   *logger.CanonicalLogger
	now      func() time.Time
}

func NewUseCase(
	client repository.IServiceClient,
	repo repository.IRepository,
	preparer executor.IPreparer,
	runner executor.IRunner,
	workDir string,
	log *logger.CanonicalLogger,
) *UseCase {
	return &UseCase{
		client:   client,
		repo:     repo,
		preparer: preparer,
		runner:   runner,
		workDir:  workDir,
		logger:   log,
		now:      time.Now,
	}
}

func (uc *UseCase) Register(ctx context.Context, accountID, accountSecret, name string) (string, error) {
	token, err := uc.client.Register(ctx, accountID, accountSecret, name)
	if err != nil {
		return "", fmt.Errorf("failed to register %s: %w", name, err)
	}
	return token, nil
}

// Run owns the pending status between cycles. A status still pending when
// the loop stops is dropped; the service treats the task as unreported.
func (uc *UseCase) Run(ctx context.Context, p poll.Poller) error {
	var pending *models.ReportedStatus

	err := p.Run(ctx, func(ctx context.Context) bool {
		prev := pending
		pending = nil
		next, more := uc.Cycle(ctx, prev)
		pending = next
		return more
	})

	if pending != nil {
		uc.logger.Info("dropping unreported status on shutdown",
			logger.String(logger.FieldResource, pending.ResourceID),
			logger.Int(logger.FieldExitCode, int(pending.Value)),
		)
	}
	return err
}

// Cycle polls once and runs the task it gets, if any. Everything learned along
// the way is collected on a LogContext and written as one line per cycle.
func (uc *UseCase) Cycle(ctx context.Context, pending *models.ReportedStatus) (*models.ReportedStatus, bool) {
	cycleID := uuid.NewString()
	lc := logger.NewLogContext()
	ctx = logger.WithLogContext(logger.WithCorrelationID(ctx, cycleID), lc)
	log := uc.logger.WithCycle(cycleID)

	success := false
	lc.AddField(logger.String(logger.FieldDat, models.EncodeStatus(pending)))
	defer func() {
		lc.AddField(logger.Bool(logger.FieldSuccess, success))
		log.Info("poll_cycle", lc.Fields()...)
	}()

	result, err := uc.client.Poll(ctx, pending)
	uc.repo.RecordPoll(uc.now(), result, err)

	if err != nil {
		lc.AddField(logger.Error(err))
		log.WithError(err).Error("poll failed")
		return nil, false
	}
	lc.AddField(logger.Int(logger.FieldStatus, result.StatusCode))

	if !result.HasTask() {
		lc.AddField(logger.String(logger.FieldReason, string(result.Reason)))
		switch result.Reason {
		case models.NoTaskRejected:
			log.Warn("request denied", logger.Int(logger.FieldStatus, result.StatusCode))
		case models.NoTaskUntrustedAuthority:
			log.Warn("response discarded", logger.String(logger.FieldReason, string(result.Reason)))
		default:
			success = true
		}
		return nil, false
	}

	status := uc.ExecuteTask(ctx, result.Task)
	success = true
	return &status, true
}

func (uc *UseCase) ExecuteTask(ctx context.Context, task *models.Task) (status models.ReportedStatus) {
	log := uc.logger.
		WithCycle(logger.GetCorrelationID(ctx)).
		WithResource(task.ResourceName)

	start := uc.now()
	run, clean := models.SentinelOutcome, models.SentinelOutcome

	defer func() {
		if r := recover(); r != nil {
			log.Error("task execution panicked", logger.String("panic", fmt.Sprint(r)))
			run, clean = models.SentinelOutcome, models.SentinelOutcome
		}
		status = models.NewReportedStatus(task.ResourceName, run, clean)
		elapsed := uc.now().Sub(start)
		uc.repo.RecordTask(uc.now(), task.ResourceName, status, elapsed)
		logger.AddToContext(ctx,
			logger.String(logger.FieldResource, status.ResourceID),
			logger.Int(logger.FieldRunExit, int(run)),
			logger.Int(logger.FieldCleanExit, int(clean)),
			logger.String(logger.FieldReported, status.Encode()),
			logger.Duration("elapsed", elapsed),
		)
		log.Debug("task completed")
	}()

	// A fresh name per task keeps a slow kill from a previous cycle away from this file.
	exe, err := uc.preparer.Prepare(task.Payload, filepath.Join(uc.workDir, uuid.NewString()))
	if err != nil {
		log.WithError(err).Error("failed to prepare executable")
		return
	}
	defer func() {
		if err := exe.Remove(); err != nil {
			log.WithError(err).Warn("failed to remove executable")
		}
	}()

	run = uc.runner.Run(exe, nil)
	log.Debug("phase finished", logger.String(logger.FieldPhase, PhaseRun), logger.Int(logger.FieldExitCode, int(run)))

	clean = uc.runner.Run(exe, cleanArgs)
	log.Debug("phase finished", logger.String(logger.FieldPhase, PhaseClean), logger.Int(logger.FieldExitCode, int(clean)))

	return
}
