package executor

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Alwanly/detect-probe/internal/models"
	"github.com/Alwanly/detect-probe/pkg/logger"
)

type ProcessRunner struct {
	timeout time.Duration
	logger  *logger.CanonicalLogger
}

func NewRunner(timeout time.Duration, log *logger.CanonicalLogger) *ProcessRunner {
	return &ProcessRunner{
		timeout: timeout,
		logger:  log,
	}
}

// Run starts exe with args and waits for it. If the timeout fires first the
// child (and its process group on POSIX) is killed and reaped, and the result
// is SentinelOutcome whatever the child's exit status turns out to be.
func (r *ProcessRunner) Run(exe *Executable, args []string) models.ExecutionOutcome {
	cmd := exec.Command(exe.Path, args...)
	cmd.Dir = filepath.Dir(exe.Path)
	configure(cmd)

	log := r.logger.With(logger.Strings("args", args))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		log.WithError(err).Error("failed to start executable")
		return models.SentinelOutcome
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case <-done:
		outcome := exitOutcome(cmd.ProcessState)
		log.Debug("executable exited",
			logger.Int(logger.FieldExitCode, int(outcome)),
			logger.Duration("elapsed", time.Since(start)),
		)
		return outcome
	case <-timer.C:
		if err := terminate(cmd); err != nil {
			log.WithError(err).Error("failed to kill executable")
		}
		<-done
		log.Warn("executable timed out",
			logger.Duration("timeout", r.timeout),
		)
		return models.SentinelOutcome
	}
}

// exitOutcome maps a finished process to its outcome; no readable exit code
// (killed by a signal) maps to the sentinel.
func exitOutcome(state *os.ProcessState) models.ExecutionOutcome {
	if state == nil {
		return models.SentinelOutcome
	}
	code := state.ExitCode()
	if code < 0 {
		return models.SentinelOutcome
	}
	return models.ExecutionOutcome(code)
}
