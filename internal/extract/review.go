package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/forgelight/foreman/internal/result"
)

var (
	scorePattern    = regexp.MustCompile(`(?i)(?:score|rating|点数)\D{0,10}(\d{1,3})`)
	outOf100Pattern = regexp.MustCompile(`(\d{1,3})\s*/\s*100`)
	axisLinePattern = regexp.MustCompile(`(?i)^\s*(?:[-*+]\s+)?\*{0,2}([\p{L}\p{N}\s/]+?)\*{0,2}\s*[:：]\s*(.+)$`)
)

// Review extracts a review record from model output. The result reports
// success=false only when neither a score, a positive note, nor an issue
// could be located.
func Review(text string) result.Review {
	doc := scan(text)

	score, scoreFound := reviewScore(text)
	review := result.Review{
		Score:       score,
		Axes:        reviewAxes(doc),
		Positives:   listItems(doc.section("positive", "strength", "what went well", "良い点")),
		Issues:      listItems(doc.section("critical issue", "issue", "problem", "concern", "問題")),
		Suggestions: listItems(doc.section("suggestion", "recommendation", "improvement", "改善")),
		Security:    securityChecks(doc),
		Decision:    reviewDecision(doc, score, scoreFound),
		Next:        result.NextComplete,
	}

	found := scoreFound || len(review.Positives) > 0 || len(review.Issues) > 0
	if !found {
		review.Success = false
		review.Error = "no recognizable review structure in model output"
		review.Message = "review extraction failed"
		review.Next = result.NextUserIntervention
		return review
	}

	review.Success = true
	review.Message = fmt.Sprintf("review complete: score %d, decision %s",
		review.Score, review.Decision)
	return review
}

func reviewScore(text string) (int, bool) {
	if m := scorePattern.FindStringSubmatch(text); m != nil {
		return clampScore(m[1])
	}
	if m := outOf100Pattern.FindStringSubmatch(text); m != nil {
		return clampScore(m[1])
	}
	return 0, false
}

func clampScore(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n, true
}

// reviewAxes reads the four-axis summary from a table or from "axis:
// verdict" lines anywhere in a summary section. Unlocated axes default
// to warning rather than inventing a pass.
func reviewAxes(doc *document) result.ReviewSummary {
	axes := result.ReviewSummary{
		Quality:      result.VerdictWarning,
		Security:     result.VerdictWarning,
		Performance:  result.VerdictWarning,
		TestCoverage: result.VerdictWarning,
	}

	assign := func(name, verdict string) {
		v, ok := parseVerdict(verdict)
		if !ok {
			return
		}
		switch {
		case matchesHeading(name, "quality", "品質"):
			axes.Quality = v
		case matchesHeading(name, "security", "セキュリティ"):
			axes.Security = v
		case matchesHeading(name, "performance", "パフォーマンス"):
			axes.Performance = v
		case matchesHeading(name, "test", "coverage", "テスト"):
			axes.TestCoverage = v
		}
	}

	lines := doc.section("summary", "assessment", "evaluation", "評価")
	if lines == nil {
		lines = rawLines(doc.lines)
	}

	header, rows := tableRows(lines)
	if len(rows) > 0 {
		nameCol := columnIndex(header, "category", "axis", "area", "項目")
		verdictCol := columnIndex(header, "status", "verdict", "result", "評価")
		if nameCol < 0 {
			nameCol = 0
		}
		if verdictCol < 0 {
			verdictCol = 1
		}
		for _, row := range rows {
			assign(cell(row, nameCol), cell(row, verdictCol))
		}
		return axes
	}

	for _, l := range lines {
		if m := axisLinePattern.FindStringSubmatch(l); m != nil {
			assign(m[1], m[2])
		}
	}
	return axes
}

func parseVerdict(s string) (result.Verdict, bool) {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "pass") || strings.Contains(l, "good") ||
		strings.Contains(l, "ok") || strings.Contains(l, "合格"):
		return result.VerdictPass, true
	case strings.Contains(l, "warn") || strings.Contains(l, "注意"):
		return result.VerdictWarning, true
	case strings.Contains(l, "fail") || strings.Contains(l, "poor") ||
		strings.Contains(l, "不合格"):
		return result.VerdictFail, true
	}
	return "", false
}

// securityChecks reads the five security verdicts from "area: verdict"
// lines in a security section. Unlocated areas are not_applicable.
func securityChecks(doc *document) result.SecurityChecks {
	checks := result.SecurityChecks{
		Secrets:         result.SecurityNotApplicable,
		InputValidation: result.SecurityNotApplicable,
		Injection:       result.SecurityNotApplicable,
		AccessControl:   result.SecurityNotApplicable,
		Dependencies:    result.SecurityNotApplicable,
	}

	lines := doc.section("security check", "security", "セキュリティ")
	if lines == nil {
		return checks
	}

	for _, l := range lines {
		m := axisLinePattern.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		v, ok := parseSecurityVerdict(m[2])
		if !ok {
			continue
		}
		switch {
		case matchesHeading(m[1], "secret", "credential", "機密"):
			checks.Secrets = v
		case matchesHeading(m[1], "input", "validation", "入力"):
			checks.InputValidation = v
		case matchesHeading(m[1], "injection", "インジェクション"):
			checks.Injection = v
		case matchesHeading(m[1], "access", "auth", "permission", "認証"):
			checks.AccessControl = v
		case matchesHeading(m[1], "depend", "supply chain", "依存"):
			checks.Dependencies = v
		}
	}
	return checks
}

func parseSecurityVerdict(s string) (result.SecurityVerdict, bool) {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "n/a") || strings.Contains(l, "not applicable") ||
		strings.Contains(l, "対象外"):
		return result.SecurityNotApplicable, true
	case strings.Contains(l, "vulnerab") || strings.Contains(l, "fail") ||
		strings.Contains(l, "脆弱"):
		return result.SecurityVulnerable, true
	case strings.Contains(l, "warn") || strings.Contains(l, "注意"):
		return result.SecurityWarning, true
	case strings.Contains(l, "safe") || strings.Contains(l, "pass") ||
		strings.Contains(l, "ok") || strings.Contains(l, "安全"):
		return result.SecuritySafe, true
	}
	return "", false
}

// reviewDecision reads an explicit decision keyword, falling back to a
// score-based call when the text carries a score but no decision.
func reviewDecision(doc *document, score int, scoreFound bool) result.Decision {
	lines := doc.section("decision", "verdict", "conclusion", "判定")
	if lines == nil {
		lines = rawLines(doc.lines)
	}
	text := strings.ToLower(strings.Join(lines, "\n"))

	switch {
	case strings.Contains(text, "conditional"):
		return result.DecisionConditional
	case strings.Contains(text, "rejected") || strings.Contains(text, "却下"):
		return result.DecisionRejected
	case strings.Contains(text, "approved") || strings.Contains(text, "承認"):
		return result.DecisionApproved
	}

	if scoreFound {
		switch {
		case score >= 80:
			return result.DecisionApproved
		case score >= 50:
			return result.DecisionConditional
		}
		return result.DecisionRejected
	}
	return result.DecisionConditional
}
