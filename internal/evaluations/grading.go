package evaluations

import (
	"math"

	"github.com/sekolah-admin/backend/internal/models"
)

// Aggregates are the derived fields of an evaluation, recomputed from its
// items on every item write.
type Aggregates struct {
	TotalScore   int
	AverageScore float64
	FinalGrade   *models.Grade
}

// ComputeAggregates derives total, average (2 decimal places), and final
// grade from the graded items. No items means zero aggregates and no grade.
func ComputeAggregates(grades []models.Grade) Aggregates {
	if len(grades) == 0 {
		return Aggregates{}
	}
	total := 0
	for _, g := range grades {
		total += g.Score()
	}
	avg := math.Round(float64(total)/float64(len(grades))*100) / 100
	final := models.GradeForAverage(avg)
	return Aggregates{TotalScore: total, AverageScore: avg, FinalGrade: &final}
}
