// Package validate runs the external validation tools (tests, type
// check, lint) and combines their verdicts.
package validate

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultCommandTimeout = 5 * time.Minute

// TestResult is the test-runner verdict.
type TestResult struct {
	Passed bool
	Total  int
	Failed int
	Output string
}

// CheckResult is a typecheck or lint verdict.
type CheckResult struct {
	Passed   bool
	Errors   int
	Warnings int
	Output   string
}

// Result aggregates the three independent verdicts. Passed is the
// logical AND of all three.
type Result struct {
	Passed    bool
	Tests     TestResult
	Typecheck CheckResult
	Lint      CheckResult
}

// FailureSummary describes what failed, for folding into a healing
// retry prompt. Empty when the result passed.
func (r *Result) FailureSummary() string {
	if r.Passed {
		return ""
	}

	var parts []string
	if !r.Tests.Passed {
		parts = append(parts, "tests failed:\n"+tail(r.Tests.Output, 2000))
	}
	if !r.Typecheck.Passed {
		parts = append(parts, "type check failed:\n"+tail(r.Typecheck.Output, 2000))
	}
	if !r.Lint.Passed {
		parts = append(parts, "lint failed:\n"+tail(r.Lint.Output, 2000))
	}
	return strings.Join(parts, "\n\n")
}

// Runner is the validation boundary consumed by the stage executor.
type Runner interface {
	Run(ctx context.Context, dir string) (*Result, error)
}

// Commands configures the three validation invocations. An empty
// command counts as passed: the project simply has no such tool.
type Commands struct {
	Test      string
	Typecheck string
	Lint      string
}

// CommandRunner executes configured shell commands and parses their
// output.
type CommandRunner struct {
	commands Commands
	timeout  time.Duration
	logger   *slog.Logger
}

// RunnerOption configures a CommandRunner.
type RunnerOption func(*CommandRunner)

// WithTimeout sets the per-command timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *CommandRunner) {
		r.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *CommandRunner) {
		r.logger = logger
	}
}

// NewCommandRunner creates a runner for the given commands.
func NewCommandRunner(commands Commands, opts ...RunnerOption) *CommandRunner {
	r := &CommandRunner{
		commands: commands,
		timeout:  defaultCommandTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the three validations concurrently in dir. A non-zero
// exit is a failed verdict, not an error; errors are reserved for
// infrastructure problems.
func (r *CommandRunner) Run(ctx context.Context, dir string) (*Result, error) {
	res := &Result{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Tests = r.runTests(gctx, dir)
		return nil
	})
	g.Go(func() error {
		res.Typecheck = r.runCheck(gctx, dir, "typecheck", r.commands.Typecheck)
		return nil
	})
	g.Go(func() error {
		res.Lint = r.runCheck(gctx, dir, "lint", r.commands.Lint)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Passed = res.Tests.Passed && res.Typecheck.Passed && res.Lint.Passed
	return res, nil
}

func (r *CommandRunner) runTests(ctx context.Context, dir string) TestResult {
	if r.commands.Test == "" {
		return TestResult{Passed: true}
	}

	output, exitOK := r.exec(ctx, dir, r.commands.Test)
	res := parseTestOutput(output)
	res.Output = output
	// The exit code is authoritative; counts are best-effort detail.
	res.Passed = exitOK
	return res
}

func (r *CommandRunner) runCheck(ctx context.Context, dir, name, command string) CheckResult {
	if command == "" {
		return CheckResult{Passed: true}
	}

	output, exitOK := r.exec(ctx, dir, command)
	res := CheckResult{Passed: exitOK, Output: output}
	if !exitOK {
		res.Errors = countProblems(output)
	}
	r.logger.Debug("validation check finished", "check", name, "passed", exitOK)
	return res
}

// exec runs a shell command, returning combined output and whether it
// exited zero.
func (r *CommandRunner) exec(ctx context.Context, dir, command string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	return buf.String(), err == nil
}

// tail returns the last n bytes of s, cutting at a line boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}
