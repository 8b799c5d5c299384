package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		run, clean, want ExecutionOutcome
	}{
		{100, 137, 137},
		{100, 100, 100},
		{101, 0, 101},
		{SentinelOutcome, 0, SentinelOutcome},
		{0, SentinelOutcome, SentinelOutcome},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Combine(tt.run, tt.clean), "run=%d clean=%d", tt.run, tt.clean)
	}
}

func TestNewReportedStatus_TruncatesResource(t *testing.T) {
	name := "3e574858-10e6-4f07-a006-e91ef43ff928_darwin-arm64"
	s := NewReportedStatus(name, 100, 100)

	assert.Len(t, s.ResourceID, ResourceIDLength)
	assert.Equal(t, "3e574858-10e6-4f07-a006-e91ef43ff928", s.ResourceID)
	assert.Equal(t, "3e574858-10e6-4f07-a006-e91ef43ff928:100", s.Encode())
}

func TestNewReportedStatus_ShortResourceKept(t *testing.T) {
	s := NewReportedStatus("short", 1, 2)
	assert.Equal(t, "short:2", s.Encode())
}

func TestEncodeStatus(t *testing.T) {
	assert.Equal(t, "", EncodeStatus(nil))

	s := NewReportedStatus(strings.Repeat("a", 40), -1, 15)
	assert.Equal(t, strings.Repeat("a", 36)+":15", EncodeStatus(&s))
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, "darwin-arm64", Platform("darwin", "arm64"))
	assert.Equal(t, "windows-x86_64", Platform("windows", "amd64"))
	assert.Equal(t, "linux-x86_64", Platform("linux", "amd64"))
}
