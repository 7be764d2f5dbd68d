package executor

import (
	"context"
	"fmt"

	"github.com/forgelight/foreman/internal/events"
	"github.com/forgelight/foreman/internal/extract"
	"github.com/forgelight/foreman/internal/result"
)

// Implement produces an Implementation from an approved plan, retrying
// generation until validation passes or the healing budget is exhausted.
// The loop carries no backoff: each attempt is a full generation plus
// validation cycle and failures are logical, not transient.
//
// Preconditions are rejected with ErrNoPlan / ErrPlanNotApproved before
// any generation happens.
func (e *Executor) Implement(ctx context.Context, request string, plan *result.Plan) (result.Implementation, error) {
	if plan == nil {
		return result.Implementation{}, ErrNoPlan
	}
	if plan.ApprovalStatus != result.ApprovalApproved {
		return result.Implementation{}, fmt.Errorf("%w: status %s", ErrPlanNotApproved, plan.ApprovalStatus)
	}

	e.notify(events.SkillStarted, map[string]any{"skill": "implement"})

	var (
		impl           result.Implementation
		failureDetails string
	)
	for attempt := 1; attempt <= e.maxHealingAttempts; attempt++ {
		var err error
		impl, err = e.attemptImplementation(ctx, *plan, failureDetails)
		if err != nil {
			e.notify(events.SkillFailed, map[string]any{"skill": "implement", "error": err.Error()})
			return result.Implementation{}, err
		}

		if impl.Validation.Passed {
			impl.Success = true
			impl.Next = result.NextReview
			impl.HealingAttempts = attempt
			if attempt > 1 {
				e.notify(events.HealingSucceeded, map[string]any{
					"attempt":      attempt,
					"max_attempts": e.maxHealingAttempts,
				})
			}
			e.notify(events.SkillCompleted, map[string]any{"skill": "implement"})
			return impl, nil
		}

		failureDetails = impl.Error
		e.logger.Warn("validation failed",
			"attempt", attempt,
			"max_attempts", e.maxHealingAttempts,
			"tests_failed", impl.Validation.TestsFailed)
		e.notify(events.HealingFailed, map[string]any{
			"attempt":      attempt,
			"max_attempts": e.maxHealingAttempts,
			"reason":       failureDetails,
		})
	}

	impl.Success = false
	impl.Next = result.NextUserIntervention
	impl.HealingAttempts = e.maxHealingAttempts
	impl.Message = fmt.Sprintf("validation still failing after %d attempts", e.maxHealingAttempts)
	e.notify(events.SkillFailed, map[string]any{"skill": "implement", "error": impl.Message})
	return impl, nil
}

// attemptImplementation runs one generate/apply/validate cycle. The
// returned Implementation carries the validation verdict; success and
// the attempt counter are filled in by the caller.
func (e *Executor) attemptImplementation(ctx context.Context, plan result.Plan, failureDetails string) (result.Implementation, error) {
	rendered, err := e.prompts.Implement(plan, failureDetails)
	if err != nil {
		return result.Implementation{}, fmt.Errorf("build implement prompt: %w", err)
	}

	resp, err := e.complete(ctx, rendered)
	if err != nil {
		return result.Implementation{}, fmt.Errorf("implementation generation: %w", err)
	}

	out := extract.Implementation(resp.Content)
	applied := e.applyChanges(out.FileChanges)

	vres, err := e.validator.Run(ctx, e.workDir)
	if err != nil {
		return result.Implementation{}, fmt.Errorf("run validation: %w", err)
	}

	impl := result.Implementation{
		Message:     out.Message,
		FileChanges: applied,
		Validation: result.ValidationResult{
			Passed:          vres.Passed,
			TestsTotal:      vres.Tests.Total,
			TestsPassed:     vres.Tests.Total - vres.Tests.Failed,
			TestsFailed:     vres.Tests.Failed,
			TypecheckPassed: vres.Typecheck.Passed,
			LintPassed:      vres.Lint.Passed,
		},
	}
	if !vres.Passed {
		impl.Error = vres.FailureSummary()
	}
	return impl, nil
}
