// Package result defines the typed records produced by workflow stages:
// plans, implementations, and reviews.
package result

// Role identifies the kind of generation stage that produced a result.
type Role string

const (
	RolePlanner     Role = "planner"
	RoleImplementer Role = "implementer"
	RoleReviewer    Role = "reviewer"
)

// NextStep indicates what should happen after a stage completes.
type NextStep string

const (
	NextApproval         NextStep = "approval"
	NextImplement        NextStep = "implement"
	NextReview           NextStep = "review"
	NextComplete         NextStep = "complete"
	NextUserIntervention NextStep = "user_intervention"
)

// Result is the common contract of every stage result. Each concrete
// type carries its own role-specific payload.
type Result interface {
	// Role returns the discriminant for this result.
	Role() Role
	// Succeeded reports whether the stage produced a usable result.
	Succeeded() bool
	// Summary returns the human-readable message for this result.
	Summary() string
}

// ChangeKind classifies how a file is affected.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeModify ChangeKind = "modify"
	ChangeDelete ChangeKind = "delete"
)

// IsValidChangeKind returns true for a recognized change kind.
func IsValidChangeKind(k ChangeKind) bool {
	switch k {
	case ChangeCreate, ChangeModify, ChangeDelete:
		return true
	default:
		return false
	}
}
