package result

// FileChange records one applied file change.
type FileChange struct {
	Path         string     `json:"path" yaml:"path"`
	Action       ChangeKind `json:"action" yaml:"action"`
	Summary      string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	LinesAdded   int        `json:"lines_added" yaml:"lines_added"`
	LinesRemoved int        `json:"lines_removed" yaml:"lines_removed"`
}

// ValidationResult aggregates the three independent validation verdicts.
type ValidationResult struct {
	Passed          bool `json:"passed" yaml:"passed"`
	TestsTotal      int  `json:"tests_total" yaml:"tests_total"`
	TestsPassed     int  `json:"tests_passed" yaml:"tests_passed"`
	TestsFailed     int  `json:"tests_failed" yaml:"tests_failed"`
	TypecheckPassed bool `json:"typecheck_passed" yaml:"typecheck_passed"`
	LintPassed      bool `json:"lint_passed" yaml:"lint_passed"`
}

// Implementation is the implementer stage result. HealingAttempts counts
// generate/validate cycles, starting at 1.
type Implementation struct {
	Success         bool             `json:"success" yaml:"success"`
	Message         string           `json:"message" yaml:"message"`
	Error           string           `json:"error,omitempty" yaml:"error,omitempty"`
	Next            NextStep         `json:"next_step" yaml:"next_step"`
	FileChanges     []FileChange     `json:"file_changes,omitempty" yaml:"file_changes,omitempty"`
	Validation      ValidationResult `json:"validation" yaml:"validation"`
	HealingAttempts int              `json:"healing_attempts" yaml:"healing_attempts"`
}

// Role implements Result.
func (Implementation) Role() Role { return RoleImplementer }

// Succeeded implements Result.
func (i Implementation) Succeeded() bool { return i.Success }

// Summary implements Result.
func (i Implementation) Summary() string { return i.Message }
