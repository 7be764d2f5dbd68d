package result

// ApprovalStatus tracks where a plan sits in the approval lifecycle.
// The only legal transitions are pending -> approved, pending -> rejected,
// and pending -> needs_revision; a plan never returns to pending.
type ApprovalStatus string

const (
	ApprovalPending       ApprovalStatus = "pending"
	ApprovalApproved      ApprovalStatus = "approved"
	ApprovalRejected      ApprovalStatus = "rejected"
	ApprovalNeedsRevision ApprovalStatus = "needs_revision"
)

// RiskImpact grades how severe a identified risk is.
type RiskImpact string

const (
	ImpactHigh   RiskImpact = "high"
	ImpactMedium RiskImpact = "medium"
	ImpactLow    RiskImpact = "low"
)

// AffectedFile describes one file the plan expects to touch.
type AffectedFile struct {
	Path        string     `json:"path" yaml:"path"`
	Action      ChangeKind `json:"action" yaml:"action"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// PlanPhase is one ordered phase of work with its task list.
type PlanPhase struct {
	Title string   `json:"title" yaml:"title"`
	Tasks []string `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// Risk describes a single risk with its impact and mitigation.
type Risk struct {
	Description string     `json:"description" yaml:"description"`
	Impact      RiskImpact `json:"impact" yaml:"impact"`
	Mitigation  string     `json:"mitigation,omitempty" yaml:"mitigation,omitempty"`
}

// Plan is the planner stage result.
type Plan struct {
	Success        bool           `json:"success" yaml:"success"`
	Message        string         `json:"message" yaml:"message"`
	Error          string         `json:"error,omitempty" yaml:"error,omitempty"`
	Next           NextStep       `json:"next_step" yaml:"next_step"`
	Title          string         `json:"title" yaml:"title"`
	Objective      string         `json:"objective,omitempty" yaml:"objective,omitempty"`
	AffectedFiles  []AffectedFile `json:"affected_files,omitempty" yaml:"affected_files,omitempty"`
	Phases         []PlanPhase    `json:"phases,omitempty" yaml:"phases,omitempty"`
	Risks          []Risk         `json:"risks,omitempty" yaml:"risks,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status" yaml:"approval_status"`
}

// Role implements Result.
func (Plan) Role() Role { return RolePlanner }

// Succeeded implements Result.
func (p Plan) Succeeded() bool { return p.Success }

// Summary implements Result.
func (p Plan) Summary() string { return p.Message }

// Approved reports whether the plan has been approved.
func (p Plan) Approved() bool { return p.ApprovalStatus == ApprovalApproved }

// Approve returns a copy of the plan marked approved. The receiver is
// never mutated; applying the same transition twice yields equal values.
func Approve(p Plan) Plan {
	p.ApprovalStatus = ApprovalApproved
	return p
}

// Reject returns a copy of the plan marked rejected, with the message
// replaced by the given reason (or a default when empty).
func Reject(p Plan, reason string) Plan {
	if reason == "" {
		reason = "plan rejected"
	}
	p.ApprovalStatus = ApprovalRejected
	p.Message = reason
	return p
}

// RequestRevision returns a copy of the plan marked needs_revision, with
// the feedback recorded as the message.
func RequestRevision(p Plan, feedback string) Plan {
	if feedback == "" {
		feedback = "revision requested"
	}
	p.ApprovalStatus = ApprovalNeedsRevision
	p.Message = feedback
	return p
}
