package models

import (
	"time"

	"github.com/google/uuid"
)

// SweepStatus represents the status of a sweep run
type SweepStatus string

const (
	SweepStatusRunning   SweepStatus = "running"
	SweepStatusCompleted SweepStatus = "completed"
	SweepStatusFailed    SweepStatus = "failed"
	SweepStatusSkipped   SweepStatus = "skipped"
)

// SweepRun records one pass over all tracked items
type SweepRun struct {
	ID            string      `json:"id,omitempty"`
	Trigger       string      `json:"trigger"` // "scheduled" or "manual"
	Status        SweepStatus `json:"status"`
	Checked       int         `json:"checked"`
	Resolved      int         `json:"resolved"`
	BelowTarget   int         `json:"below_target"`
	AlertsCreated int         `json:"alerts_created"`
	EmailsSent    int         `json:"emails_sent"`
	EmailsFailed  int         `json:"emails_failed"`
	EmailsSkipped int         `json:"emails_skipped"`
	Error         string      `json:"error,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// NewSweepRun creates a sweep run in the running state
func NewSweepRun(trigger string) *SweepRun {
	return &SweepRun{
		ID:        "sweep_" + uuid.NewString(),
		Trigger:   trigger,
		Status:    SweepStatusRunning,
		StartedAt: time.Now(),
	}
}

// Complete marks the run as completed
func (r *SweepRun) Complete() {
	r.Status = SweepStatusCompleted
	now := time.Now()
	r.CompletedAt = &now
}

// Fail marks the run as failed with error
func (r *SweepRun) Fail(err error) {
	r.Status = SweepStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
	now := time.Now()
	r.CompletedAt = &now
}

// IsCompleted returns true if the run is in a final state
func (r *SweepRun) IsCompleted() bool {
	return r.Status == SweepStatusCompleted || r.Status == SweepStatusFailed || r.Status == SweepStatusSkipped
}

// Duration returns the duration of the run
func (r *SweepRun) Duration() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}

	endTime := time.Now()
	if r.CompletedAt != nil {
		endTime = *r.CompletedAt
	}

	return endTime.Sub(r.StartedAt)
}
