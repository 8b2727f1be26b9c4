package models

import "time"

// RPPStatus is the review status of a lesson-plan submission.
type RPPStatus string

const (
	RPPPending        RPPStatus = "pending"
	RPPApproved       RPPStatus = "approved"
	RPPRejected       RPPStatus = "rejected"
	RPPRevisionNeeded RPPStatus = "revision_needed"
)

// ValidRPPDecision reports whether s is a status a reviewer may set.
func ValidRPPDecision(s string) bool {
	switch RPPStatus(s) {
	case RPPApproved, RPPRejected, RPPRevisionNeeded:
		return true
	}
	return false
}

// RPPSubmission is a teacher's lesson-plan (RPP) submission for a period.
type RPPSubmission struct {
	ID            int64      `json:"id"`
	TeacherID     int64      `json:"teacher_id"`
	PeriodID      int64      `json:"period_id"`
	RPPType       string     `json:"rpp_type"`
	FileID        int64      `json:"file_id"`
	Status        RPPStatus  `json:"status"`
	ReviewerID    *int64     `json:"reviewer_id"`
	ReviewNotes   string     `json:"review_notes"`
	RevisionCount int        `json:"revision_count"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
