package models

import "time"

// Grade is a letter grade for one evaluation aspect.
type Grade string

const (
	GradeA Grade = "A" // excellent
	GradeB Grade = "B" // good
	GradeC Grade = "C" // satisfactory
	GradeD Grade = "D" // needs improvement
)

// Score returns the numeric value of a grade, 0 for unknown grades.
func (g Grade) Score() int {
	switch g {
	case GradeA:
		return 4
	case GradeB:
		return 3
	case GradeC:
		return 2
	case GradeD:
		return 1
	}
	return 0
}

// ValidGrade reports whether s is a known letter grade.
func ValidGrade(s string) bool {
	switch Grade(s) {
	case GradeA, GradeB, GradeC, GradeD:
		return true
	}
	return false
}

// EvaluationCategory groups aspects, e.g. Pedagogik, Kepribadian.
// DisplayOrder values form a dense 1..N sequence across categories.
type EvaluationCategory struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EvaluationAspect is one graded criterion within a category. DisplayOrder
// values form a dense 1..N sequence within the category.
type EvaluationAspect struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TeacherEvaluation is the per-teacher, per-period, per-evaluator summary with
// aggregates recomputed from its items on every item write.
type TeacherEvaluation struct {
	ID           int64                   `json:"id"`
	TeacherID    int64                   `json:"teacher_id"`
	EvaluatorID  int64                   `json:"evaluator_id"`
	PeriodID     int64                   `json:"period_id"`
	TotalScore   int                     `json:"total_score"`
	AverageScore float64                 `json:"average_score"`
	FinalGrade   *Grade                  `json:"final_grade"`
	FinalNotes   string                  `json:"final_notes"`
	Items        []TeacherEvaluationItem `json:"items,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// TeacherEvaluationItem grades one aspect within an evaluation.
type TeacherEvaluationItem struct {
	ID           int64     `json:"id"`
	EvaluationID int64     `json:"evaluation_id"`
	AspectID     int64     `json:"aspect_id"`
	Grade        Grade     `json:"grade"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GradeForAverage maps an average score to the final letter grade.
func GradeForAverage(avg float64) Grade {
	switch {
	case avg >= 3.5:
		return GradeA
	case avg >= 2.5:
		return GradeB
	case avg >= 1.5:
		return GradeC
	default:
		return GradeD
	}
}
