// Package events provides the workflow event model and listener fan-out.
package events

import (
	"time"
)

// Type defines the type of a workflow event. The set is closed: engines
// never emit anything outside these constants.
type Type string

const (
	// Workflow lifecycle events

	// WorkflowStarted is always the first event of a run.
	WorkflowStarted Type = "workflow:started"
	// WorkflowCompleted indicates the run finished successfully.
	WorkflowCompleted Type = "workflow:completed"
	// WorkflowFailed indicates the run terminated with an error.
	WorkflowFailed Type = "workflow:failed"
	// WorkflowCancelled indicates the run was cancelled or the plan rejected.
	WorkflowCancelled Type = "workflow:cancelled"

	// Agent (stage) events

	// AgentStarted indicates a generation stage began.
	AgentStarted Type = "agent:started"
	// AgentCompleted indicates a generation stage finished successfully.
	AgentCompleted Type = "agent:completed"
	// AgentFailed indicates a generation stage failed.
	AgentFailed Type = "agent:failed"

	// Skill (sub-step) events

	// SkillStarted indicates a sub-step within a stage began.
	SkillStarted Type = "skill:started"
	// SkillCompleted indicates a sub-step finished.
	SkillCompleted Type = "skill:completed"
	// SkillFailed indicates a sub-step failed.
	SkillFailed Type = "skill:failed"

	// Approval gate events

	// ApprovalRequested indicates the engine is suspended awaiting a decision.
	ApprovalRequested Type = "approval:requested"
	// ApprovalReceived indicates a decision resolved the pending approval.
	ApprovalReceived Type = "approval:received"

	// Self-healing loop events

	// HealingSucceeded indicates validation passed within the retry budget.
	HealingSucceeded Type = "healing:succeeded"
	// HealingFailed indicates one healing attempt failed validation.
	HealingFailed Type = "healing:failed"
)

// Event is an immutable record emitted by a workflow engine. Events are
// append-only; the engine is the only producer.
type Event struct {
	Type       Type      `json:"type"`
	WorkflowID string    `json:"workflow_id"`
	Phase      string    `json:"phase"`
	Role       string    `json:"role,omitempty"`
	Skill      string    `json:"skill,omitempty"`
	Data       any       `json:"data,omitempty"`
	Time       time.Time `json:"time"`
}

// New creates an event stamped with the current time.
func New(t Type, workflowID, phase string) Event {
	return Event{
		Type:       t,
		WorkflowID: workflowID,
		Phase:      phase,
		Time:       time.Now(),
	}
}

// ApprovalRequestedData is the payload of an ApprovalRequested event.
type ApprovalRequestedData struct {
	Title       string    `json:"title"`
	Objective   string    `json:"objective,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// ApprovalReceivedData is the payload of an ApprovalReceived event.
type ApprovalReceivedData struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// HealingData is the payload of healing loop events.
type HealingData struct {
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Reason      string `json:"reason,omitempty"`
}

// FailureData is the payload of agent:failed and workflow:failed events.
type FailureData struct {
	Message string `json:"message"`
}
