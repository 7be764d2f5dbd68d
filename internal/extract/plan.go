package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/forgelight/foreman/internal/result"
)

var phaseHeadingPattern = regexp.MustCompile(`(?i)^phase\s*\d*\s*[:.\-]?\s*(.*)$`)

// Plan extracts a plan record from model output. The result reports
// success=false only when no recognizable structure was found at all; a
// located title heading alone is enough to count as found.
func Plan(text, originalRequest string) result.Plan {
	doc := scan(text)

	plan := result.Plan{
		Title:          planTitle(doc),
		Objective:      planObjective(doc, originalRequest),
		AffectedFiles:  affectedFiles(doc),
		Phases:         planPhases(doc),
		Risks:          risks(doc),
		ApprovalStatus: result.ApprovalPending,
		Next:           result.NextApproval,
	}

	found := plan.Title != "" ||
		len(plan.AffectedFiles) > 0 ||
		len(plan.Phases) > 0 ||
		len(plan.Risks) > 0

	if !found {
		plan.Success = false
		plan.Error = "no recognizable plan structure in model output"
		plan.Message = "plan extraction failed"
		plan.Next = result.NextUserIntervention
		return plan
	}

	plan.Success = true
	plan.Message = fmt.Sprintf("plan ready: %d files, %d phases, %d risks",
		len(plan.AffectedFiles), len(plan.Phases), len(plan.Risks))
	return plan
}

// planTitle returns the first heading, preferring one that is not a
// known section name.
func planTitle(doc *document) string {
	sectionNames := []string{
		"objective", "goal", "affected file", "files to change", "file changes",
		"phases", "steps", "risk", "task",
	}
	for _, l := range doc.lines {
		if l.heading == "" {
			continue
		}
		if matchesHeading(l.heading, sectionNames...) {
			continue
		}
		return strings.TrimSpace(strings.TrimPrefix(l.heading, "Plan:"))
	}
	return doc.firstHeading()
}

func planObjective(doc *document, originalRequest string) string {
	lines := doc.section("objective", "goal", "purpose", "目的")
	if lines == nil {
		return originalRequest
	}
	var parts []string
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			continue
		}
		if m := listItemPattern.FindStringSubmatch(l); m != nil {
			trimmed = strings.TrimSpace(m[1])
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return originalRequest
	}
	return strings.Join(parts, " ")
}

// affectedFiles parses the affected-files section from either a pipe
// table (path | action | description) or a plain list.
func affectedFiles(doc *document) []result.AffectedFile {
	lines := doc.section("affected file", "files to change", "file changes", "files", "変更ファイル")
	if lines == nil {
		return nil
	}

	header, rows := tableRows(lines)
	if len(rows) > 0 {
		pathCol := columnIndex(header, "path", "file", "ファイル")
		actionCol := columnIndex(header, "action", "change", "kind", "操作")
		descCol := columnIndex(header, "description", "detail", "note", "説明")
		if pathCol < 0 {
			pathCol = 0
		}

		var files []result.AffectedFile
		for _, row := range rows {
			path := pathPattern.FindString(cell(row, pathCol))
			if path == "" {
				continue
			}
			files = append(files, result.AffectedFile{
				Path:        path,
				Action:      parseChangeKind(cell(row, actionCol)),
				Description: cell(row, descCol),
			})
		}
		if len(files) > 0 {
			return files
		}
	}

	var files []result.AffectedFile
	for _, item := range listItems(lines) {
		path := pathPattern.FindString(item)
		if path == "" {
			continue
		}
		desc := strings.TrimSpace(strings.TrimLeft(
			strings.Replace(item, path, "", 1), "`*:—–- "))
		files = append(files, result.AffectedFile{
			Path:        path,
			Action:      inferChangeKind(item),
			Description: desc,
		})
	}
	return files
}

// planPhases collects "Phase N" headings with their task lists, falling
// back to a numbered list under a phases/steps section.
func planPhases(doc *document) []result.PlanPhase {
	var phases []result.PlanPhase

	for i, l := range doc.lines {
		if l.heading == "" || !phaseHeadingPattern.MatchString(l.heading) {
			continue
		}
		if !matchesHeading(l.heading, "phase", "フェーズ") {
			continue
		}
		end := len(doc.lines)
		for j := i + 1; j < len(doc.lines); j++ {
			if doc.lines[j].heading != "" {
				end = j
				break
			}
		}
		phases = append(phases, result.PlanPhase{
			Title: l.heading,
			Tasks: listItems(rawLines(doc.lines[i+1 : end])),
		})
	}
	if len(phases) > 0 {
		return phases
	}

	lines := doc.section("phases", "steps", "implementation plan", "手順")
	for _, item := range listItems(lines) {
		phases = append(phases, result.PlanPhase{Title: item})
	}
	return phases
}

// risks parses the risks section from a table (risk | impact |
// mitigation) or a plain list with impact keywords.
func risks(doc *document) []result.Risk {
	lines := doc.section("risk", "リスク")
	if lines == nil {
		return nil
	}

	header, rows := tableRows(lines)
	if len(rows) > 0 {
		descCol := columnIndex(header, "risk", "description", "リスク")
		impactCol := columnIndex(header, "impact", "severity", "影響")
		mitCol := columnIndex(header, "mitigation", "countermeasure", "対策")
		if descCol < 0 {
			descCol = 0
		}

		var out []result.Risk
		for _, row := range rows {
			desc := cell(row, descCol)
			if desc == "" {
				continue
			}
			out = append(out, result.Risk{
				Description: desc,
				Impact:      parseImpact(cell(row, impactCol)),
				Mitigation:  cell(row, mitCol),
			})
		}
		if len(out) > 0 {
			return out
		}
	}

	var out []result.Risk
	for _, item := range listItems(lines) {
		out = append(out, result.Risk{
			Description: item,
			Impact:      parseImpact(item),
		})
	}
	return out
}

func parseImpact(s string) result.RiskImpact {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "high") || strings.Contains(l, "critical") || strings.Contains(l, "高"):
		return result.ImpactHigh
	case strings.Contains(l, "low") || strings.Contains(l, "minor") || strings.Contains(l, "低"):
		return result.ImpactLow
	default:
		return result.ImpactMedium
	}
}
