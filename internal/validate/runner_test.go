package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_AllCommandsEmpty(t *testing.T) {
	r := NewCommandRunner(Commands{})

	res, err := r.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, res.Tests.Passed)
	assert.True(t, res.Typecheck.Passed)
	assert.True(t, res.Lint.Passed)
}

func TestRun_CombinesWithAND(t *testing.T) {
	r := NewCommandRunner(Commands{
		Test:      "true",
		Typecheck: "false",
		Lint:      "true",
	})

	res, err := r.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.True(t, res.Tests.Passed)
	assert.False(t, res.Typecheck.Passed)
	assert.True(t, res.Lint.Passed)
}

func TestRun_CapturesOutput(t *testing.T) {
	r := NewCommandRunner(Commands{Lint: "echo 'main.go:3:1: unused variable'; exit 1"})

	res, err := r.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.False(t, res.Lint.Passed)
	assert.Equal(t, 1, res.Lint.Errors)
	assert.Contains(t, res.Lint.Output, "unused variable")
}

func TestFailureSummary(t *testing.T) {
	res := &Result{
		Passed:    false,
		Tests:     TestResult{Passed: false, Output: "--- FAIL: TestX"},
		Typecheck: CheckResult{Passed: true},
		Lint:      CheckResult{Passed: true},
	}

	summary := res.FailureSummary()
	assert.Contains(t, summary, "tests failed")
	assert.Contains(t, summary, "TestX")
	assert.NotContains(t, summary, "lint failed")

	passed := &Result{Passed: true}
	assert.Empty(t, passed.FailureSummary())
}

func TestParseGoTestJSON(t *testing.T) {
	output := `{"Action":"run","Package":"p","Test":"TestA"}
{"Action":"pass","Package":"p","Test":"TestA","Elapsed":0.01}
{"Action":"run","Package":"p","Test":"TestB"}
{"Action":"fail","Package":"p","Test":"TestB","Elapsed":0.02}
{"Action":"fail","Package":"p","Elapsed":0.05}
`

	res := parseTestOutput(output)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Passed)
}

func TestParseGoTestJSON_AllPass(t *testing.T) {
	output := `{"Action":"pass","Package":"p","Test":"TestA"}
{"Action":"pass","Package":"p"}
`

	res := parseTestOutput(output)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, res.Passed)
}

func TestParseTestText(t *testing.T) {
	output := `=== RUN   TestA
--- PASS: TestA (0.00s)
=== RUN   TestB
--- FAIL: TestB (0.00s)
FAIL
`

	res := parseTestOutput(output)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Passed)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 100))

	long := "line one\nline two\nline three"
	got := tail(long, 12)
	assert.Equal(t, "line three", got)
}
