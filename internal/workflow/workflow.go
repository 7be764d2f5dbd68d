// Package workflow drives a supervised run through its phases: planning,
// the approval gate, implementation with self-healing, review, and the
// optional commit. One Engine instance runs one workflow at a time.
package workflow

import (
	"time"

	"github.com/forgelight/foreman/internal/gitops"
	"github.com/forgelight/foreman/internal/result"
)

// Status is the engine lifecycle state.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusPlanning         Status = "planning"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusImplementing     Status = "implementing"
	StatusReviewing        Status = "reviewing"
	StatusCommitting       Status = "committing"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Phase identifies one step of a run in the final summary.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseApproval     Phase = "approval"
	PhaseImplementing Phase = "implementing"
	PhaseReviewing    Phase = "reviewing"
	PhaseCommitting   Phase = "committing"
)

// Phases lists all phases in execution order.
var Phases = []Phase{PhasePlanning, PhaseApproval, PhaseImplementing, PhaseReviewing, PhaseCommitting}

// PhaseStatus is the per-phase outcome reported in a Summary.
type PhaseStatus string

const (
	// PhasePending means the phase was never entered.
	PhasePending PhaseStatus = "pending"
	// PhaseCompleted means the phase finished successfully.
	PhaseCompleted PhaseStatus = "completed"
	// PhaseFailed means the phase terminated the run.
	PhaseFailed PhaseStatus = "failed"
	// PhaseSkipped means the phase was deliberately bypassed.
	PhaseSkipped PhaseStatus = "skipped"
)

// Context holds the accumulated state of one run. Result slots are
// populated monotonically: once set they are never cleared within the
// same run, healing retries only replace the Implementation value.
type Context struct {
	ID          string
	Request     string
	StartedAt   time.Time
	CompletedAt time.Time

	Plan           *result.Plan
	Implementation *result.Implementation
	Review         *result.Review
	Commit         *gitops.CommitResult

	Err string
}

// Summary is the terminal report returned by Start.
type Summary struct {
	WorkflowID string
	Status     Status
	Phases     map[Phase]PhaseStatus
	Duration   time.Duration
	Err        string
}
