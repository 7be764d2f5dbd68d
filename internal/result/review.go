package result

// Verdict grades a single review axis.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictWarning Verdict = "warning"
	VerdictFail    Verdict = "fail"
)

// SecurityVerdict grades a single security check.
type SecurityVerdict string

const (
	SecuritySafe          SecurityVerdict = "safe"
	SecurityWarning       SecurityVerdict = "warning"
	SecurityVulnerable    SecurityVerdict = "vulnerable"
	SecurityNotApplicable SecurityVerdict = "not_applicable"
)

// Decision is the reviewer's overall call.
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionConditional Decision = "conditional"
	DecisionRejected    Decision = "rejected"
)

// ReviewSummary holds the four-axis assessment.
type ReviewSummary struct {
	Quality      Verdict `json:"quality" yaml:"quality"`
	Security     Verdict `json:"security" yaml:"security"`
	Performance  Verdict `json:"performance" yaml:"performance"`
	TestCoverage Verdict `json:"test_coverage" yaml:"test_coverage"`
}

// SecurityChecks holds the five per-area security verdicts.
type SecurityChecks struct {
	Secrets         SecurityVerdict `json:"secrets" yaml:"secrets"`
	InputValidation SecurityVerdict `json:"input_validation" yaml:"input_validation"`
	Injection       SecurityVerdict `json:"injection" yaml:"injection"`
	AccessControl   SecurityVerdict `json:"access_control" yaml:"access_control"`
	Dependencies    SecurityVerdict `json:"dependencies" yaml:"dependencies"`
}

// Review is the reviewer stage result. Score is on a 0-100 scale.
type Review struct {
	Success     bool           `json:"success" yaml:"success"`
	Message     string         `json:"message" yaml:"message"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
	Next        NextStep       `json:"next_step" yaml:"next_step"`
	Score       int            `json:"score" yaml:"score"`
	Axes        ReviewSummary  `json:"axes" yaml:"axes"`
	Positives   []string       `json:"positives,omitempty" yaml:"positives,omitempty"`
	Issues      []string       `json:"issues,omitempty" yaml:"issues,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Security    SecurityChecks `json:"security_checks" yaml:"security_checks"`
	Decision    Decision       `json:"decision" yaml:"decision"`
}

// Role implements Result.
func (Review) Role() Role { return RoleReviewer }

// Succeeded implements Result.
func (r Review) Succeeded() bool { return r.Success }

// Summary implements Result.
func (r Review) Summary() string { return r.Message }
