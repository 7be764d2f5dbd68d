// Package executor runs the individual workflow stages: plan generation,
// implementation with the self-healing loop, review, and commit. It owns
// the collaborators each stage needs (completion client, prompt builder,
// validation runner, committer) but none of the phase sequencing, which
// belongs to the workflow engine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forgelight/foreman/internal/events"
	"github.com/forgelight/foreman/internal/extract"
	"github.com/forgelight/foreman/internal/gitops"
	"github.com/forgelight/foreman/internal/llm"
	"github.com/forgelight/foreman/internal/prompt"
	"github.com/forgelight/foreman/internal/result"
	"github.com/forgelight/foreman/internal/validate"
)

// Precondition errors for the implementation stage. Each violated
// precondition is a distinct condition callers can test with errors.Is.
var (
	// ErrNoPlan is returned when implementation is requested without a plan.
	ErrNoPlan = errors.New("no plan supplied")

	// ErrPlanNotApproved is returned when the supplied plan has not been
	// approved.
	ErrPlanNotApproved = errors.New("plan not approved")
)

// DefaultMaxHealingAttempts bounds the implement/validate repair loop.
const DefaultMaxHealingAttempts = 3

// Notifier receives stage-level events as they happen. The workflow engine
// wraps these with the workflow id and current phase before fan-out.
type Notifier func(t events.Type, data map[string]any)

// Executor runs workflow stages against a project directory.
type Executor struct {
	client    llm.Completer
	prompts   *prompt.Builder
	validator validate.Runner
	committer gitops.Committer

	workDir            string
	maxHealingAttempts int
	maxTokens          int
	temperature        *float64
	notify             Notifier
	logger             *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxHealingAttempts sets the retry budget for the implementation stage.
// Values below 1 are ignored.
func WithMaxHealingAttempts(n int) Option {
	return func(e *Executor) {
		if n >= 1 {
			e.maxHealingAttempts = n
		}
	}
}

// WithGeneration sets the completion request parameters. Zero maxTokens
// and nil temperature use the endpoint defaults.
func WithGeneration(maxTokens int, temperature *float64) Option {
	return func(e *Executor) {
		e.maxTokens = maxTokens
		e.temperature = temperature
	}
}

// WithValidator sets the validation runner used after applying changes.
func WithValidator(r validate.Runner) Option {
	return func(e *Executor) { e.validator = r }
}

// WithCommitter sets the committer used by the commit stage.
func WithCommitter(c gitops.Committer) Option {
	return func(e *Executor) { e.committer = c }
}

// WithNotifier sets the stage event callback.
func WithNotifier(n Notifier) Option {
	return func(e *Executor) { e.notify = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// New creates an Executor. client and prompts are required; the validator
// defaults to a no-op pass and the committer to plain git.
func New(client llm.Completer, prompts *prompt.Builder, workDir string, opts ...Option) *Executor {
	e := &Executor{
		client:             client,
		prompts:            prompts,
		validator:          validate.NewCommandRunner(validate.Commands{}),
		committer:          gitops.New(),
		workDir:            workDir,
		maxHealingAttempts: DefaultMaxHealingAttempts,
		notify:             func(events.Type, map[string]any) {},
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan generates and extracts a plan for the request. Extraction failure is
// reported inside the returned Plan (success=false), not as an error; the
// error return covers transport failures only.
func (e *Executor) Plan(ctx context.Context, request string) (result.Plan, error) {
	e.notify(events.SkillStarted, map[string]any{"skill": "plan"})

	rendered, err := e.prompts.Plan(request)
	if err != nil {
		e.notify(events.SkillFailed, map[string]any{"skill": "plan", "error": err.Error()})
		return result.Plan{}, fmt.Errorf("build plan prompt: %w", err)
	}

	resp, err := e.complete(ctx, rendered)
	if err != nil {
		e.notify(events.SkillFailed, map[string]any{"skill": "plan", "error": err.Error()})
		return result.Plan{}, fmt.Errorf("plan generation: %w", err)
	}

	plan := extract.Plan(resp.Content, request)
	if plan.Success {
		e.notify(events.SkillCompleted, map[string]any{"skill": "plan"})
	} else {
		e.notify(events.SkillFailed, map[string]any{"skill": "plan", "error": plan.Error})
	}
	return plan, nil
}

// Review generates and extracts a review of the implementation.
func (e *Executor) Review(ctx context.Context, request string, impl result.Implementation) (result.Review, error) {
	e.notify(events.SkillStarted, map[string]any{"skill": "review"})

	rendered, err := e.prompts.Review(request, impl)
	if err != nil {
		e.notify(events.SkillFailed, map[string]any{"skill": "review", "error": err.Error()})
		return result.Review{}, fmt.Errorf("build review prompt: %w", err)
	}

	resp, err := e.complete(ctx, rendered)
	if err != nil {
		e.notify(events.SkillFailed, map[string]any{"skill": "review", "error": err.Error()})
		return result.Review{}, fmt.Errorf("review generation: %w", err)
	}

	review := extract.Review(resp.Content)
	if review.Success {
		e.notify(events.SkillCompleted, map[string]any{"skill": "review"})
	} else {
		e.notify(events.SkillFailed, map[string]any{"skill": "review", "error": review.Error})
	}
	return review, nil
}

// Commit stages and commits everything under the work directory.
func (e *Executor) Commit(message string) gitops.CommitResult {
	e.notify(events.SkillStarted, map[string]any{"skill": "commit"})
	res := e.committer.CommitAll(e.workDir, message)
	if res.Success {
		e.notify(events.SkillCompleted, map[string]any{"skill": "commit", "sha": res.SHA})
	} else {
		e.notify(events.SkillFailed, map[string]any{"skill": "commit", "error": res.Error})
	}
	return res
}

func (e *Executor) complete(ctx context.Context, r *prompt.Rendered) (*llm.Response, error) {
	return e.client.Complete(ctx, llm.Request{
		System:      r.System,
		Prompt:      r.Prompt,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
}
