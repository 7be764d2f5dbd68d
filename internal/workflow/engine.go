package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgelight/foreman/internal/events"
	"github.com/forgelight/foreman/internal/gitops"
	"github.com/forgelight/foreman/internal/result"
)

// ErrAlreadyRunning is returned by Start when the engine is not idle.
// One Engine instance runs one workflow at a time; call Reset after a
// terminal run before starting another.
var ErrAlreadyRunning = errors.New("workflow already running")

// Stages runs the individual workflow stages. Satisfied by
// executor.Executor.
type Stages interface {
	Plan(ctx context.Context, request string) (result.Plan, error)
	Implement(ctx context.Context, request string, plan *result.Plan) (result.Implementation, error)
	Review(ctx context.Context, request string, impl result.Implementation) (result.Review, error)
	Commit(message string) gitops.CommitResult
}

type approvalResponse struct {
	approved bool
	feedback string
}

// Engine is the workflow state machine.
type Engine struct {
	stages   Stages
	registry *events.Registry
	logger   *slog.Logger

	autoApprove  bool
	autoCommit   bool
	commitPrefix string

	mu         sync.Mutex
	status     Status
	phase      Phase
	wctx       *Context
	phases     map[Phase]PhaseStatus
	approvalCh chan approvalResponse
	runCancel  chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithAutoApprove makes the engine approve every plan, skipping the
// awaiting_approval state entirely.
func WithAutoApprove(on bool) Option {
	return func(e *Engine) { e.autoApprove = on }
}

// WithAutoCommit makes the engine commit applied changes after review.
func WithAutoCommit(on bool) Option {
	return func(e *Engine) { e.autoCommit = on }
}

// WithCommitPrefix sets the prefix of generated commit messages.
func WithCommitPrefix(prefix string) Option {
	return func(e *Engine) { e.commitPrefix = prefix }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an idle Engine.
func New(stages Stages, opts ...Option) *Engine {
	e := &Engine{
		stages:       stages,
		registry:     events.NewRegistry(),
		logger:       slog.Default(),
		commitPrefix: "[foreman]",
		status:       StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// On registers an event listener and returns its unsubscribe function.
// Listener panics are contained by the registry.
func (e *Engine) On(l events.Listener) func() {
	return e.registry.On(l)
}

// Status returns the current lifecycle state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Context returns the current run's context, nil before Start.
func (e *Engine) Context() *Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wctx
}

// CurrentPhase returns the phase matching the current status, or "" when
// idle or terminal.
func (e *Engine) CurrentPhase() Phase {
	return phaseForStatus(e.Status())
}

// Reset discards the run context and any pending approval resolver,
// returning the engine to idle.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wctx = nil
	e.phases = nil
	e.approvalCh = nil
	if e.runCancel != nil {
		close(e.runCancel)
		e.runCancel = nil
	}
	e.status = StatusIdle
	e.phase = ""
}

// SubmitApproval resolves the outstanding approval exchange. A no-op
// when none is outstanding; only the first call resolves it.
func (e *Engine) SubmitApproval(approved bool, feedback string) {
	e.mu.Lock()
	ch := e.approvalCh
	e.approvalCh = nil
	e.mu.Unlock()

	if ch == nil {
		return
	}
	ch <- approvalResponse{approved: approved, feedback: feedback}
}

// Cancel marks the run cancelled. In-flight external calls are not
// aborted; the next phase boundary observes the cancellation and no
// further phase begins. A no-op on terminal status.
func (e *Engine) Cancel() {
	e.mu.Lock()
	if e.status.Terminal() || e.status == StatusIdle {
		e.mu.Unlock()
		return
	}
	e.status = StatusCancelled
	e.approvalCh = nil
	if e.wctx != nil {
		e.wctx.CompletedAt = time.Now()
	}
	if e.runCancel != nil {
		close(e.runCancel)
		e.runCancel = nil
	}
	e.mu.Unlock()

	e.emit(events.WorkflowCancelled, nil)
}

// Start runs the workflow for a request and blocks until it reaches a
// terminal state, including through the approval suspension.
func (e *Engine) Start(ctx context.Context, request string) (*Summary, error) {
	e.mu.Lock()
	if e.status != StatusIdle {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.wctx = &Context{
		ID:        uuid.New().String(),
		Request:   request,
		StartedAt: time.Now(),
	}
	e.phases = make(map[Phase]PhaseStatus, len(Phases))
	for _, p := range Phases {
		e.phases[p] = PhasePending
	}
	e.runCancel = make(chan struct{})
	e.status = StatusPlanning
	e.phase = PhasePlanning
	e.mu.Unlock()

	e.logger.Info("workflow started", "workflow_id", e.wctx.ID, "request", request)
	e.emit(events.WorkflowStarted, nil)

	e.runPhases(ctx, request)

	return e.summary(), nil
}

// runPhases drives the sequential phases. Each phase boundary checks for
// cancellation before entering the next phase.
func (e *Engine) runPhases(ctx context.Context, request string) {
	if !e.runPlanning(ctx, request) {
		return
	}
	if e.cancelled() {
		return
	}
	if !e.runApproval(ctx) {
		return
	}
	if e.cancelled() {
		return
	}
	if !e.runImplementation(ctx, request) {
		return
	}
	if e.cancelled() {
		return
	}
	if !e.runReview(ctx, request) {
		return
	}
	if e.cancelled() {
		return
	}
	e.runCommit()
}

func (e *Engine) runPlanning(ctx context.Context, request string) bool {
	e.emit(events.AgentStarted, nil)

	plan, err := e.stages.Plan(ctx, request)
	if err != nil {
		return e.failPhase(PhasePlanning, "planning: "+err.Error())
	}

	e.mu.Lock()
	e.wctx.Plan = &plan
	e.mu.Unlock()

	if !plan.Success {
		return e.failPhase(PhasePlanning, plan.Error)
	}

	e.setPhaseStatus(PhasePlanning, PhaseCompleted)
	e.emit(events.AgentCompleted, nil)
	return true
}

// runApproval gates on a human decision unless auto-approval is
// configured. Returns false when the run must stop (rejection or
// cancellation).
func (e *Engine) runApproval(ctx context.Context) bool {
	if e.autoApprove {
		e.mu.Lock()
		*e.wctx.Plan = result.Approve(*e.wctx.Plan)
		e.phases[PhaseApproval] = PhaseSkipped
		e.mu.Unlock()
		e.logger.Info("plan auto-approved")
		return true
	}

	// The resolver must be installed before approval:requested goes
	// out: a listener may call SubmitApproval synchronously from its
	// handler and that resolution must not be lost.
	ch := make(chan approvalResponse, 1)
	e.mu.Lock()
	if e.status.Terminal() {
		e.mu.Unlock()
		return false
	}
	e.approvalCh = ch
	e.status = StatusAwaitingApproval
	e.phase = PhaseApproval
	runCancel := e.runCancel
	plan := e.wctx.Plan
	e.mu.Unlock()

	e.emit(events.ApprovalRequested, events.ApprovalRequestedData{
		Title:       plan.Title,
		Objective:   plan.Objective,
		RequestedAt: time.Now(),
	})

	var resp approvalResponse
	select {
	case resp = <-ch:
	case <-runCancel:
		// Cancel already stamped the terminal state and emitted.
		return false
	case <-ctx.Done():
		e.Cancel()
		return false
	}

	e.emit(events.ApprovalReceived, events.ApprovalReceivedData{
		Approved: resp.approved,
		Feedback: resp.feedback,
	})

	e.mu.Lock()
	if resp.approved {
		*e.wctx.Plan = result.Approve(*e.wctx.Plan)
		e.phases[PhaseApproval] = PhaseCompleted
		e.status = StatusImplementing
		e.mu.Unlock()
		e.logger.Info("plan approved")
		return true
	}

	// Rejection is a cancellation, not a failure: the terminal error
	// stays unset and no later phase runs.
	*e.wctx.Plan = result.Reject(*e.wctx.Plan, resp.feedback)
	e.phases[PhaseApproval] = PhaseCompleted
	e.status = StatusCancelled
	e.wctx.CompletedAt = time.Now()
	e.mu.Unlock()

	e.logger.Info("plan rejected", "feedback", resp.feedback)
	e.emit(events.WorkflowCancelled, nil)
	return false
}

func (e *Engine) runImplementation(ctx context.Context, request string) bool {
	e.setStatus(StatusImplementing)
	e.emit(events.AgentStarted, nil)

	impl, err := e.stages.Implement(ctx, request, e.Context().Plan)
	if err != nil {
		return e.failPhase(PhaseImplementing, "implementation: "+err.Error())
	}

	e.mu.Lock()
	e.wctx.Implementation = &impl
	e.mu.Unlock()

	if !impl.Success {
		msg := impl.Error
		if msg == "" {
			msg = impl.Message
		}
		return e.failPhase(PhaseImplementing, msg)
	}

	e.setPhaseStatus(PhaseImplementing, PhaseCompleted)
	e.emit(events.AgentCompleted, nil)
	return true
}

func (e *Engine) runReview(ctx context.Context, request string) bool {
	e.setStatus(StatusReviewing)
	e.emit(events.AgentStarted, nil)

	review, err := e.stages.Review(ctx, request, *e.Context().Implementation)
	if err != nil {
		return e.failPhase(PhaseReviewing, "review: "+err.Error())
	}

	e.mu.Lock()
	e.wctx.Review = &review
	e.mu.Unlock()

	if !review.Success {
		return e.failPhase(PhaseReviewing, review.Error)
	}

	e.setPhaseStatus(PhaseReviewing, PhaseCompleted)
	e.emit(events.AgentCompleted, nil)
	return true
}

// runCommit commits applied changes when auto-commit is configured; the
// phase is reported skipped otherwise.
func (e *Engine) runCommit() {
	if !e.autoCommit {
		e.setPhaseStatus(PhaseCommitting, PhaseSkipped)
		e.complete()
		return
	}

	e.setStatus(StatusCommitting)

	message := e.commitPrefix + " " + e.Context().Plan.Title
	res := e.stages.Commit(message)

	e.mu.Lock()
	e.wctx.Commit = &res
	e.mu.Unlock()

	if !res.Success {
		e.failPhase(PhaseCommitting, res.Error)
		return
	}

	e.logger.Info("changes committed", "sha", res.SHA)
	e.setPhaseStatus(PhaseCommitting, PhaseCompleted)
	e.complete()
}

func (e *Engine) complete() {
	e.mu.Lock()
	e.status = StatusCompleted
	e.wctx.CompletedAt = time.Now()
	e.mu.Unlock()
	e.emit(events.WorkflowCompleted, nil)
}

// failPhase records a phase failure, stamps the terminal state, and
// emits agent:failed followed by workflow:failed. Always returns false.
func (e *Engine) failPhase(phase Phase, msg string) bool {
	e.mu.Lock()
	e.phases[phase] = PhaseFailed
	e.status = StatusFailed
	e.wctx.Err = msg
	e.wctx.CompletedAt = time.Now()
	e.mu.Unlock()

	e.logger.Error("phase failed", "phase", phase, "error", msg)
	e.emit(events.AgentFailed, events.FailureData{Message: msg})
	e.emit(events.WorkflowFailed, events.FailureData{Message: msg})
	return false
}

func (e *Engine) cancelled() bool {
	return e.Status() == StatusCancelled
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	if !e.status.Terminal() {
		e.status = s
		if p := phaseForStatus(s); p != "" {
			e.phase = p
		}
	}
	e.mu.Unlock()
}

func phaseForStatus(s Status) Phase {
	switch s {
	case StatusPlanning:
		return PhasePlanning
	case StatusAwaitingApproval:
		return PhaseApproval
	case StatusImplementing:
		return PhaseImplementing
	case StatusReviewing:
		return PhaseReviewing
	case StatusCommitting:
		return PhaseCommitting
	}
	return ""
}

func roleForPhase(p Phase) string {
	switch p {
	case PhasePlanning:
		return string(result.RolePlanner)
	case PhaseImplementing:
		return string(result.RoleImplementer)
	case PhaseReviewing:
		return string(result.RoleReviewer)
	}
	return ""
}

// emit publishes an event stamped with the run id and current phase.
// Never called with the engine mutex held: a listener may call back
// into SubmitApproval synchronously.
func (e *Engine) emit(t events.Type, data any) {
	e.mu.Lock()
	var id string
	if e.wctx != nil {
		id = e.wctx.ID
	}
	phase := e.phase
	e.mu.Unlock()

	evt := events.New(t, id, string(phase))
	evt.Role = roleForPhase(phase)
	evt.Data = data
	e.registry.Emit(evt)
}

// Notify adapts executor stage notifications (skill and healing events)
// into fully stamped workflow events.
func (e *Engine) Notify(t events.Type, data map[string]any) {
	e.mu.Lock()
	var id string
	if e.wctx != nil {
		id = e.wctx.ID
	}
	phase := e.phase
	e.mu.Unlock()

	evt := events.New(t, id, string(phase))
	evt.Role = roleForPhase(phase)
	if skill, ok := data["skill"].(string); ok {
		evt.Skill = skill
	}
	evt.Data = data
	e.registry.Emit(evt)
}

func (e *Engine) setPhaseStatus(p Phase, s PhaseStatus) {
	e.mu.Lock()
	e.phases[p] = s
	e.mu.Unlock()
}

func (e *Engine) summary() *Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &Summary{
		WorkflowID: e.wctx.ID,
		Status:     e.status,
		Phases:     make(map[Phase]PhaseStatus, len(e.phases)),
		Err:        e.wctx.Err,
	}
	for p, st := range e.phases {
		s.Phases[p] = st
	}
	end := e.wctx.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	s.Duration = end.Sub(e.wctx.StartedAt)
	return s
}
