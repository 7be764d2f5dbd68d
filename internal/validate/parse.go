package validate

import (
	"strings"

	"github.com/tidwall/gjson"
)

// parseTestOutput extracts pass/fail counts from test-runner output.
// It understands the `go test -json` event stream and falls back to a
// plain-text scan for other runners.
func parseTestOutput(output string) TestResult {
	if res, ok := parseGoTestJSON(output); ok {
		return res
	}
	return parseTestText(output)
}

// parseGoTestJSON reads a stream of go test -json events, counting
// terminal pass/fail actions for individual tests.
func parseGoTestJSON(output string) (TestResult, bool) {
	var res TestResult
	sawEvent := false

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") || !gjson.Valid(line) {
			continue
		}
		ev := gjson.Parse(line)
		action := ev.Get("Action").String()
		if action == "" {
			continue
		}
		sawEvent = true

		// Package-level events carry no Test field.
		if ev.Get("Test").String() == "" {
			continue
		}
		switch action {
		case "pass":
			res.Total++
		case "fail":
			res.Total++
			res.Failed++
		}
	}

	if !sawEvent {
		return TestResult{}, false
	}
	res.Passed = res.Failed == 0
	return res, true
}

// parseTestText scans plain test output for summary lines such as
// "12 passed, 2 failed" or go's "--- FAIL:" markers.
func parseTestText(output string) TestResult {
	var res TestResult
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "--- PASS:") {
			res.Total++
		}
		if strings.Contains(line, "--- FAIL:") {
			res.Total++
			res.Failed++
		}
	}
	res.Passed = res.Failed == 0 && !strings.Contains(output, "\nFAIL")
	return res
}

// countProblems counts lines that look like compiler or linter
// diagnostics (file:line:col style).
func countProblems(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if looksLikeDiagnostic(trimmed) {
			count++
		}
	}
	if count == 0 && strings.TrimSpace(output) != "" {
		count = 1
	}
	return count
}

func looksLikeDiagnostic(line string) bool {
	// path.go:12:3: message
	first := strings.SplitN(line, " ", 2)[0]
	return strings.Count(first, ":") >= 2 && strings.Contains(first, ".")
}
