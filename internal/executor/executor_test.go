package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgelight/foreman/internal/events"
	"github.com/forgelight/foreman/internal/gitops"
	"github.com/forgelight/foreman/internal/llm"
	"github.com/forgelight/foreman/internal/prompt"
	"github.com/forgelight/foreman/internal/result"
	"github.com/forgelight/foreman/internal/validate"
)

// scriptedCompleter returns canned responses in order and records requests.
type scriptedCompleter struct {
	responses []string
	err       error
	requests  []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &llm.Response{Content: s.responses[idx]}, nil
}

// scriptedRunner returns canned validation results in order.
type scriptedRunner struct {
	results []*validate.Result
	calls   int
}

func (s *scriptedRunner) Run(context.Context, string) (*validate.Result, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx], nil
}

func passResult() *validate.Result {
	return &validate.Result{
		Passed:    true,
		Tests:     validate.TestResult{Passed: true, Total: 4},
		Typecheck: validate.CheckResult{Passed: true},
		Lint:      validate.CheckResult{Passed: true},
	}
}

func failResult(output string) *validate.Result {
	return &validate.Result{
		Passed:    false,
		Tests:     validate.TestResult{Passed: false, Total: 4, Failed: 1, Output: output},
		Typecheck: validate.CheckResult{Passed: true},
		Lint:      validate.CheckResult{Passed: true},
	}
}

type recordedEvent struct {
	t    events.Type
	data map[string]any
}

func newTestExecutor(t *testing.T, c llm.Completer, r validate.Runner, rec *[]recordedEvent) *Executor {
	t.Helper()
	dir := t.TempDir()
	builder := prompt.NewBuilder(prompt.NewCache(""), dir)
	opts := []Option{WithValidator(r)}
	if rec != nil {
		opts = append(opts, WithNotifier(func(typ events.Type, data map[string]any) {
			*rec = append(*rec, recordedEvent{t: typ, data: data})
		}))
	}
	return New(c, builder, dir, opts...)
}

func approvedPlan() *result.Plan {
	p := result.Plan{
		Success:   true,
		Title:     "Add greeting endpoint",
		Objective: "Expose a greeting over HTTP",
	}
	p = result.Approve(p)
	return &p
}

const implementationDoc = "# Implementation\n\n" +
	"## Summary\n\nAdded the greeting handler.\n\n" +
	"### Created `greet.go`\n\n" +
	"```go\npackage main\n\nfunc greet() string { return \"hi\" }\n```\n"

func TestImplementPreconditions(t *testing.T) {
	e := newTestExecutor(t, &scriptedCompleter{responses: []string{implementationDoc}}, &scriptedRunner{results: []*validate.Result{passResult()}}, nil)

	if _, err := e.Implement(context.Background(), "req", nil); !errors.Is(err, ErrNoPlan) {
		t.Errorf("nil plan error = %v, want ErrNoPlan", err)
	}

	pending := result.Plan{Success: true, Title: "t"}
	if _, err := e.Implement(context.Background(), "req", &pending); !errors.Is(err, ErrPlanNotApproved) {
		t.Errorf("pending plan error = %v, want ErrPlanNotApproved", err)
	}

	rejected := result.Reject(pending, "no")
	if _, err := e.Implement(context.Background(), "req", &rejected); !errors.Is(err, ErrPlanNotApproved) {
		t.Errorf("rejected plan error = %v, want ErrPlanNotApproved", err)
	}
}

func TestImplementFirstAttemptPasses(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{implementationDoc}}
	runner := &scriptedRunner{results: []*validate.Result{passResult()}}
	var rec []recordedEvent
	e := newTestExecutor(t, completer, runner, &rec)

	impl, err := e.Implement(context.Background(), "req", approvedPlan())
	if err != nil {
		t.Fatalf("Implement() error = %v", err)
	}

	if !impl.Success {
		t.Error("Success should be true")
	}
	if impl.HealingAttempts != 1 {
		t.Errorf("HealingAttempts = %d, want 1", impl.HealingAttempts)
	}
	if impl.Next != result.NextReview {
		t.Errorf("Next = %s, want %s", impl.Next, result.NextReview)
	}
	if len(completer.requests) != 1 {
		t.Errorf("generation calls = %d, want 1", len(completer.requests))
	}
	for _, ev := range rec {
		if ev.t == events.HealingSucceeded || ev.t == events.HealingFailed {
			t.Errorf("unexpected healing event %s on clean first attempt", ev.t)
		}
	}
}

func TestImplementHealsOnSecondAttempt(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{implementationDoc, implementationDoc}}
	runner := &scriptedRunner{results: []*validate.Result{
		failResult("--- FAIL: TestGreet"),
		passResult(),
	}}
	var rec []recordedEvent
	e := newTestExecutor(t, completer, runner, &rec)

	impl, err := e.Implement(context.Background(), "req", approvedPlan())
	if err != nil {
		t.Fatalf("Implement() error = %v", err)
	}

	if !impl.Success {
		t.Error("Success should be true after healing")
	}
	if impl.HealingAttempts != 2 {
		t.Errorf("HealingAttempts = %d, want 2", impl.HealingAttempts)
	}

	// Second generation prompt carries the first failure details.
	if len(completer.requests) != 2 {
		t.Fatalf("generation calls = %d, want 2", len(completer.requests))
	}
	if !strings.Contains(completer.requests[1].Prompt, "TestGreet") {
		t.Error("retry prompt should include the previous failure output")
	}
	if strings.Contains(completer.requests[0].Prompt, "Previous attempt failed") {
		t.Error("first prompt should not mention a previous attempt")
	}

	var sawFailed, sawSucceeded bool
	for _, ev := range rec {
		switch ev.t {
		case events.HealingFailed:
			sawFailed = true
			if ev.data["attempt"] != 1 {
				t.Errorf("healing:failed attempt = %v, want 1", ev.data["attempt"])
			}
		case events.HealingSucceeded:
			sawSucceeded = true
			if ev.data["attempt"] != 2 {
				t.Errorf("healing:succeeded attempt = %v, want 2", ev.data["attempt"])
			}
		}
	}
	if !sawFailed || !sawSucceeded {
		t.Errorf("healing events: failed=%v succeeded=%v, want both", sawFailed, sawSucceeded)
	}
}

func TestImplementExhaustsHealingBudget(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{implementationDoc}}
	runner := &scriptedRunner{results: []*validate.Result{failResult("still broken")}}
	var rec []recordedEvent
	e := newTestExecutor(t, completer, runner, &rec)

	impl, err := e.Implement(context.Background(), "req", approvedPlan())
	if err != nil {
		t.Fatalf("Implement() error = %v", err)
	}

	if impl.Success {
		t.Error("Success should be false on exhaustion")
	}
	if impl.HealingAttempts != DefaultMaxHealingAttempts {
		t.Errorf("HealingAttempts = %d, want %d", impl.HealingAttempts, DefaultMaxHealingAttempts)
	}
	if impl.Next != result.NextUserIntervention {
		t.Errorf("Next = %s, want %s", impl.Next, result.NextUserIntervention)
	}
	if len(completer.requests) != DefaultMaxHealingAttempts {
		t.Errorf("generation calls = %d, want %d", len(completer.requests), DefaultMaxHealingAttempts)
	}

	failedEvents := 0
	for _, ev := range rec {
		if ev.t == events.HealingFailed {
			failedEvents++
		}
	}
	if failedEvents != DefaultMaxHealingAttempts {
		t.Errorf("healing:failed events = %d, want %d", failedEvents, DefaultMaxHealingAttempts)
	}
}

func TestImplementRespectsConfiguredBudget(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{implementationDoc}}
	runner := &scriptedRunner{results: []*validate.Result{failResult("nope")}}
	dir := t.TempDir()
	builder := prompt.NewBuilder(prompt.NewCache(""), dir)
	e := New(completer, builder, dir, WithValidator(runner), WithMaxHealingAttempts(1))

	impl, err := e.Implement(context.Background(), "req", approvedPlan())
	if err != nil {
		t.Fatalf("Implement() error = %v", err)
	}
	if impl.HealingAttempts != 1 {
		t.Errorf("HealingAttempts = %d, want 1", impl.HealingAttempts)
	}
	if len(completer.requests) != 1 {
		t.Errorf("generation calls = %d, want 1", len(completer.requests))
	}
}

func TestImplementGenerationErrorPropagates(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("endpoint down")}
	e := newTestExecutor(t, completer, &scriptedRunner{results: []*validate.Result{passResult()}}, nil)

	if _, err := e.Implement(context.Background(), "req", approvedPlan()); err == nil {
		t.Error("Implement() should propagate generation errors")
	}
}

func TestImplementAppliesChanges(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{implementationDoc}}
	runner := &scriptedRunner{results: []*validate.Result{passResult()}}
	dir := t.TempDir()
	builder := prompt.NewBuilder(prompt.NewCache(""), dir)
	e := New(completer, builder, dir, WithValidator(runner))

	impl, err := e.Implement(context.Background(), "req", approvedPlan())
	if err != nil {
		t.Fatalf("Implement() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "greet.go"))
	if err != nil {
		t.Fatalf("applied file missing: %v", err)
	}
	if !strings.Contains(string(data), "func greet()") {
		t.Errorf("applied content = %q", data)
	}
	if len(impl.FileChanges) != 1 {
		t.Fatalf("FileChanges = %d, want 1", len(impl.FileChanges))
	}
	if impl.FileChanges[0].LinesAdded == 0 {
		t.Error("LinesAdded should be counted for a new file")
	}
}

func TestPlanStage(t *testing.T) {
	planDoc := "# Plan: Add greeting\n\n## Objective\n\nExpose a greeting.\n\n## Affected Files\n\n- `greet.go` (create): handler\n"
	completer := &scriptedCompleter{responses: []string{planDoc}}
	var rec []recordedEvent
	e := newTestExecutor(t, completer, &scriptedRunner{results: []*validate.Result{passResult()}}, &rec)

	plan, err := e.Plan(context.Background(), "add a greeting")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !plan.Success {
		t.Fatalf("plan should extract: %s", plan.Error)
	}
	if plan.ApprovalStatus != result.ApprovalPending {
		t.Errorf("ApprovalStatus = %s, want pending", plan.ApprovalStatus)
	}

	last := rec[len(rec)-1]
	if last.t != events.SkillCompleted {
		t.Errorf("last event = %s, want skill:completed", last.t)
	}
}

func TestPlanStageExtractionFailure(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"I could not produce a plan, sorry."}}
	var rec []recordedEvent
	e := newTestExecutor(t, completer, &scriptedRunner{results: []*validate.Result{passResult()}}, &rec)

	plan, err := e.Plan(context.Background(), "add a greeting")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Success {
		t.Error("unparseable output should yield Success=false, not an error")
	}

	last := rec[len(rec)-1]
	if last.t != events.SkillFailed {
		t.Errorf("last event = %s, want skill:failed", last.t)
	}
}

type stubCommitter struct {
	res  gitops.CommitResult
	dir  string
	msgs []string
}

func (s *stubCommitter) CommitAll(dir, message string) gitops.CommitResult {
	s.dir = dir
	s.msgs = append(s.msgs, message)
	return s.res
}

func TestCommitStage(t *testing.T) {
	committer := &stubCommitter{res: gitops.CommitResult{Success: true, SHA: "abc123"}}
	dir := t.TempDir()
	builder := prompt.NewBuilder(prompt.NewCache(""), dir)
	e := New(&scriptedCompleter{responses: []string{""}}, builder, dir, WithCommitter(committer))

	res := e.Commit("[foreman] add greeting")
	if !res.Success {
		t.Error("commit should succeed")
	}
	if committer.dir != dir {
		t.Errorf("commit dir = %q, want work dir", committer.dir)
	}
	if len(committer.msgs) != 1 || committer.msgs[0] != "[foreman] add greeting" {
		t.Errorf("commit messages = %v", committer.msgs)
	}
}
