package models

import "fmt"

// ExecutionOutcome is the exit code of one phase, or SentinelOutcome.
type ExecutionOutcome int

// SentinelOutcome marks a phase that had to be killed or could not start.
// 256 is UNEXPECTED_ERROR in the service's exit code taxonomy and can never be
// produced by a POSIX process, whose exit status is 0-255. Being larger than
// every code a test returns, it always wins the max combination.
const SentinelOutcome ExecutionOutcome = 256

// ResourceIDLength is the length of the task identifier reported back (a UUID).
const ResourceIDLength = 36

// ReportedStatus is carried in the dat header of the poll following a task.
type ReportedStatus struct {
	ResourceID string           `json:"resource_id"`
	Value      ExecutionOutcome `json:"value"`
}

// Combine returns the more severe of the run and clean outcomes.
func Combine(run, clean ExecutionOutcome) ExecutionOutcome {
	if clean > run {
		return clean
	}
	return run
}

// NewReportedStatus builds the status reported for resourceName.
func NewReportedStatus(resourceName string, run, clean ExecutionOutcome) ReportedStatus {
	return ReportedStatus{
		ResourceID: TruncateResource(resourceName),
		Value:      Combine(run, clean),
	}
}

func TruncateResource(name string) string {
	if len(name) > ResourceIDLength {
		return name[:ResourceIDLength]
	}
	return name
}

// Encode renders the status as "<resource-id>:<value>".
func (s ReportedStatus) Encode() string {
	return fmt.Sprintf("%s:%d", s.ResourceID, s.Value)
}

// EncodeStatus returns the dat header value, empty when nothing is pending.
func EncodeStatus(s *ReportedStatus) string {
	if s == nil {
		return ""
	}
	return s.Encode()
}
