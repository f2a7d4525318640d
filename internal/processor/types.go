package processor

import (
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
)

// Processor reacts to committed participation changes and checks the stored
// state against the participation invariants.
type Processor struct {
	store       Store
	promoter    Promoter
	notifier    Notifier
	metrics     metrics.Metrics
	autoPromote bool
}

// Violation kinds reported by Audit.
const (
	ViolationOverbooked             = "overbooked"
	ViolationDuplicateRegistration  = "duplicate_registration"
	ViolationWaitlistConflict       = "waitlist_conflict"
	ViolationLeaderboardUnconfirmed = "leaderboard_unconfirmed"
)

// Violation is one integrity problem found by Audit.
type Violation struct {
	Kind    string `json:"kind"`
	EventID string `json:"eventId"`
	UserID  string `json:"userId,omitempty"`
	Detail  string `json:"detail"`
}

// AuditReport lists every violation found in one audit run.
type AuditReport struct {
	Violations []Violation `json:"violations"`
}

// Clean reports whether the audit found nothing.
func (r AuditReport) Clean() bool {
	return len(r.Violations) == 0
}
