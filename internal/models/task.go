package models

// NoTaskReason explains why a poll returned no work.
type NoTaskReason string

const (
	NoTaskEmpty              NoTaskReason = "no_tasks"
	NoTaskRejected           NoTaskReason = "rejected"
	NoTaskUntrustedAuthority NoTaskReason = "untrusted_authority"
)

// Task is one downloaded test executable. It lives for a single loop iteration.
type Task struct {
	ResourceName string
	Payload      []byte
	OriginHost   string
}

// PollResult is the outcome of one poll round trip. A nil Task means NoTask.
type PollResult struct {
	Task       *Task
	StatusCode int
	Reason     NoTaskReason
}

func (r PollResult) HasTask() bool {
	return r.Task != nil
}

func NoTask(status int, reason NoTaskReason) PollResult {
	return PollResult{StatusCode: status, Reason: reason}
}
