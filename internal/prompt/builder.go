package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgelight/foreman/internal/result"
)

// Builder renders stage prompts from templates plus workspace context.
type Builder struct {
	cache   *Cache
	workDir string
	logger  *slog.Logger

	maxStructureEntries int
	maxFileBytes        int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithStructureLimit caps the number of entries in the project
// structure summary.
func WithStructureLimit(n int) BuilderOption {
	return func(b *Builder) {
		b.maxStructureEntries = n
	}
}

// NewBuilder creates a prompt builder rooted at workDir.
func NewBuilder(cache *Cache, workDir string, opts ...BuilderOption) *Builder {
	b := &Builder{
		cache:               cache,
		workDir:             workDir,
		logger:              slog.Default(),
		maxStructureEntries: 200,
		maxFileBytes:        32 * 1024,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Stage names double as template file names.
const (
	StagePlan      = "plan"
	StageImplement = "implement"
	StageReview    = "review"
)

// Rendered is a prompt pair ready for a completion call.
type Rendered struct {
	System string
	Prompt string
}

// Plan renders the planning prompt for a request.
func (b *Builder) Plan(request string) (*Rendered, error) {
	return b.render(StagePlan, map[string]string{
		"REQUEST":           request,
		"PROJECT_STRUCTURE": b.projectStructure(),
	})
}

// Implement renders the implementation prompt for an approved plan.
// failureDetails carries the previous attempt's validation failures and
// is empty on the first healing attempt.
func (b *Builder) Implement(plan result.Plan, failureDetails string) (*Rendered, error) {
	failures := ""
	if failureDetails != "" {
		failures = "\n## Previous attempt failed validation\n\n" +
			"Fix the following problems:\n\n```\n" + failureDetails + "\n```\n"
	}

	return b.render(StageImplement, map[string]string{
		"PLAN":                planMarkdown(plan),
		"FILE_CONTENTS":       b.fileContents(affectedPaths(plan)),
		"PROJECT_STRUCTURE":   b.projectStructure(),
		"VALIDATION_FAILURES": failures,
	})
}

// Review renders the review prompt for an implementation.
func (b *Builder) Review(request string, impl result.Implementation) (*Rendered, error) {
	paths := make([]string, 0, len(impl.FileChanges))
	for _, fc := range impl.FileChanges {
		paths = append(paths, fc.Path)
	}

	return b.render(StageReview, map[string]string{
		"REQUEST":        request,
		"IMPLEMENTATION": implementationMarkdown(impl),
		"FILE_CONTENTS":  b.fileContents(paths),
	})
}

func (b *Builder) render(stage string, vars map[string]string) (*Rendered, error) {
	tmpl, err := b.cache.Prompt(stage)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		System: b.cache.System(stage),
		Prompt: Render(tmpl, vars),
	}, nil
}

func affectedPaths(plan result.Plan) []string {
	paths := make([]string, 0, len(plan.AffectedFiles))
	for _, f := range plan.AffectedFiles {
		paths = append(paths, f.Path)
	}
	return paths
}

// planMarkdown renders a plan back to markdown for inclusion in the
// implementation prompt.
func planMarkdown(plan result.Plan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", plan.Title)
	if plan.Objective != "" {
		fmt.Fprintf(&sb, "## Objective\n\n%s\n\n", plan.Objective)
	}

	if len(plan.AffectedFiles) > 0 {
		sb.WriteString("## Affected Files\n\n| Path | Action | Description |\n|---|---|---|\n")
		for _, f := range plan.AffectedFiles {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", f.Path, f.Action, f.Description)
		}
		sb.WriteString("\n")
	}

	for _, phase := range plan.Phases {
		fmt.Fprintf(&sb, "## %s\n\n", phase.Title)
		for _, task := range phase.Tasks {
			fmt.Fprintf(&sb, "- %s\n", task)
		}
		sb.WriteString("\n")
	}

	if len(plan.Risks) > 0 {
		sb.WriteString("## Risks\n\n| Risk | Impact | Mitigation |\n|---|---|---|\n")
		for _, r := range plan.Risks {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.Description, r.Impact, r.Mitigation)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func implementationMarkdown(impl result.Implementation) string {
	var sb strings.Builder

	sb.WriteString(impl.Message + "\n\n")
	for _, fc := range impl.FileChanges {
		fmt.Fprintf(&sb, "- %s %s (+%d/-%d) %s\n",
			fc.Action, fc.Path, fc.LinesAdded, fc.LinesRemoved, fc.Summary)
	}
	return sb.String()
}
