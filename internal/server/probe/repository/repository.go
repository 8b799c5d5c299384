package repository

import (
	"sync"
	"time"

	"github.com/Alwanly/detect-probe/internal/models"
)

// State is a point-in-time copy of the probe's activity.
type State struct {
	Polls          int64                  `json:"polls"`
	Tasks          int64                  `json:"tasks"`
	PollErrors     int64                  `json:"poll_errors"`
	LastPollAt     *time.Time             `json:"last_poll_at,omitempty"`
	LastPollStatus int                    `json:"last_poll_status,omitempty"`
	LastPollReason string                 `json:"last_poll_reason,omitempty"`
	LastPollError  string                 `json:"last_poll_error,omitempty"`
	LastTaskAt     *time.Time             `json:"last_task_at,omitempty"`
	LastResource   string                 `json:"last_resource,omitempty"`
	LastReported   *models.ReportedStatus `json:"last_reported,omitempty"`
	LastDuration   string                 `json:"last_duration,omitempty"`
}

type Repository struct {
	state State
	mutex sync.Mutex
}

// NewRepository creates a new repository instance
func NewRepository() IRepository {
	return &Repository{}
}

func (r *Repository) RecordPoll(at time.Time, result models.PollResult, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.state.Polls++
	r.state.LastPollAt = &at
	r.state.LastPollStatus = result.StatusCode
	r.state.LastPollReason = string(result.Reason)
	r.state.LastPollError = ""
	if err != nil {
		r.state.PollErrors++
		r.state.LastPollError = err.Error()
	}
}

func (r *Repository) RecordTask(at time.Time, resource string, status models.ReportedStatus, elapsed time.Duration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.state.Tasks++
	r.state.LastTaskAt = &at
	r.state.LastResource = resource
	r.state.LastReported = &status
	r.state.LastDuration = elapsed.String()
}

func (r *Repository) Snapshot() State {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s := r.state
	if s.LastPollAt != nil {
		t := *s.LastPollAt
		s.LastPollAt = &t
	}
	if s.LastTaskAt != nil {
		t := *s.LastTaskAt
		s.LastTaskAt = &t
	}
	if s.LastReported != nil {
		rs := *s.LastReported
		s.LastReported = &rs
	}
	return s
}
