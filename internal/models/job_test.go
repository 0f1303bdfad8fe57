package models

import (
	"testing"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		// Forward path
		{JobStatusPending, JobStatusCrawling, true},
		{JobStatusCrawling, JobStatusAnalyzing, true},
		{JobStatusAnalyzing, JobStatusComplete, true},

		// Any non-terminal state may fail
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusCrawling, JobStatusFailed, true},
		{JobStatusAnalyzing, JobStatusFailed, true},

		// No skipping phases
		{JobStatusPending, JobStatusAnalyzing, false},
		{JobStatusPending, JobStatusComplete, false},
		{JobStatusCrawling, JobStatusComplete, false},

		// No moving backward
		{JobStatusCrawling, JobStatusPending, false},
		{JobStatusAnalyzing, JobStatusCrawling, false},
		{JobStatusComplete, JobStatusAnalyzing, false},

		// Terminal states are absorbing
		{JobStatusComplete, JobStatusFailed, false},
		{JobStatusFailed, JobStatusPending, false},
		{JobStatusFailed, JobStatusCrawling, false},
		{JobStatusFailed, JobStatusComplete, false},

		// Self-transitions are not legal
		{JobStatusCrawling, JobStatusCrawling, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			if got := ValidTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusCrawling, false},
		{JobStatusAnalyzing, false},
		{JobStatusComplete, true},
		{JobStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
