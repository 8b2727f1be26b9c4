package models

import (
	"fmt"
	"time"
)

// Period is an academic period (year + semester). At most one period is
// active system-wide at any time.
type Period struct {
	ID           int64     `json:"id"`
	AcademicYear string    `json:"academic_year"`
	Semester     string    `json:"semester"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	IsActive     bool      `json:"is_active"`
	Description  string    `json:"description"`
	CreatedBy    *int64    `json:"created_by"`
	UpdatedBy    *int64    `json:"updated_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Name returns the human-readable period name, e.g. "2025/2026 - Ganjil".
func (p *Period) Name() string {
	return fmt.Sprintf("%s - %s", p.AcademicYear, p.Semester)
}

// Contains reports whether t falls within the period's date range.
func (p *Period) Contains(t time.Time) bool {
	day := t.Truncate(24 * time.Hour)
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// PeriodStats summarizes the records attached to a period.
type PeriodStats struct {
	TotalEvaluations    int `json:"total_evaluations"`
	TotalRPPSubmissions int `json:"total_rpp_submissions"`
	TotalTeachers       int `json:"total_teachers"`
}
