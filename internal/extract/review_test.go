package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgelight/foreman/internal/result"
)

func TestReview_FullDocument(t *testing.T) {
	text := `# Code Review

Score: 85/100

## Summary

| Category | Status |
|----------|--------|
| Quality | pass |
| Security | warning |
| Performance | pass |
| Test Coverage | fail |

## Positives

- Clear naming
- Good error wrapping

## Critical Issues

- Missing nil check in handler

## Suggestions

- Add benchmark coverage

## Security Checks

- Secrets: safe
- Input validation: warning
- Injection: safe
- Access control: n/a
- Dependencies: safe

## Decision

Approved.
`

	review := Review(text)

	require.True(t, review.Success)
	assert.Equal(t, 85, review.Score)
	assert.Equal(t, result.VerdictPass, review.Axes.Quality)
	assert.Equal(t, result.VerdictWarning, review.Axes.Security)
	assert.Equal(t, result.VerdictFail, review.Axes.TestCoverage)
	assert.Equal(t, []string{"Clear naming", "Good error wrapping"}, review.Positives)
	assert.Equal(t, []string{"Missing nil check in handler"}, review.Issues)
	assert.Equal(t, []string{"Add benchmark coverage"}, review.Suggestions)
	assert.Equal(t, result.SecuritySafe, review.Security.Secrets)
	assert.Equal(t, result.SecurityWarning, review.Security.InputValidation)
	assert.Equal(t, result.SecurityNotApplicable, review.Security.AccessControl)
	assert.Equal(t, result.DecisionApproved, review.Decision)
}

func TestReview_NothingRecognizable(t *testing.T) {
	review := Review("The weather is nice today.")

	require.False(t, review.Success)
	assert.NotEmpty(t, review.Error)
	assert.Empty(t, review.Positives)
	assert.Empty(t, review.Issues)
	assert.Equal(t, result.NextUserIntervention, review.Next)
}

func TestReview_ScoreOnly(t *testing.T) {
	review := Review("Overall score: 42")

	require.True(t, review.Success)
	assert.Equal(t, 42, review.Score)
	// No explicit decision: derived from the score.
	assert.Equal(t, result.DecisionRejected, review.Decision)
}

func TestReview_ScoreClamped(t *testing.T) {
	review := Review("Score: 250")

	require.True(t, review.Success)
	assert.Equal(t, 100, review.Score)
}

func TestReview_DecisionKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want result.Decision
	}{
		{"conditional", "Score: 70\n\n## Decision\n\nConditional approval pending fixes.", result.DecisionConditional},
		{"rejected", "Score: 20\n\n## Decision\n\nRejected: too risky.", result.DecisionRejected},
		{"score fallback high", "Score: 90", result.DecisionApproved},
		{"score fallback mid", "Score: 60", result.DecisionConditional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review := Review(tt.text)
			assert.Equal(t, tt.want, review.Decision)
		})
	}
}

func TestReview_AxisLines(t *testing.T) {
	text := `## Assessment

- Quality: good
- Security: fail
- Performance: warning
- Test coverage: pass

## Positives

- Solid structure
`

	review := Review(text)

	require.True(t, review.Success)
	assert.Equal(t, result.VerdictPass, review.Axes.Quality)
	assert.Equal(t, result.VerdictFail, review.Axes.Security)
	assert.Equal(t, result.VerdictWarning, review.Axes.Performance)
	assert.Equal(t, result.VerdictPass, review.Axes.TestCoverage)
}

func TestReview_UnlocatedAxesDefaultToWarning(t *testing.T) {
	review := Review("Score: 75")

	assert.Equal(t, result.VerdictWarning, review.Axes.Quality)
	assert.Equal(t, result.VerdictWarning, review.Axes.Security)
}
