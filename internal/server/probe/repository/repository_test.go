package repository

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alwanly/detect-probe/internal/models"
)

func TestRepository_RecordsActivity(t *testing.T) {
	repo := NewRepository()
	now := time.Now()

	repo.RecordPoll(now, models.NoTask(http.StatusOK, models.NoTaskEmpty), nil)
	repo.RecordPoll(now, models.PollResult{}, errors.New("dial tcp: connection refused"))

	status := models.NewReportedStatus(resourceName, 100, 101)
	repo.RecordTask(now, resourceName, status, 1500*time.Millisecond)

	s := repo.Snapshot()
	assert.Equal(t, int64(2), s.Polls)
	assert.Equal(t, int64(1), s.PollErrors)
	assert.Equal(t, int64(1), s.Tasks)
	assert.Equal(t, "dial tcp: connection refused", s.LastPollError)
	require.NotNil(t, s.LastReported)
	assert.Equal(t, models.ExecutionOutcome(101), s.LastReported.Value)
	assert.Equal(t, "1.5s", s.LastDuration)
}

func TestRepository_SnapshotIsCopy(t *testing.T) {
	repo := NewRepository()
	repo.RecordTask(time.Now(), "a", models.NewReportedStatus("a", 1, 1), time.Second)

	s := repo.Snapshot()
	s.LastReported.Value = 999

	assert.Equal(t, models.ExecutionOutcome(1), repo.Snapshot().LastReported.Value)
}
