package evaluations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-admin/backend/internal/models"
)

func grades(s ...string) []models.Grade {
	out := make([]models.Grade, len(s))
	for i, g := range s {
		out[i] = models.Grade(g)
	}
	return out
}

func TestComputeAggregatesEmpty(t *testing.T) {
	agg := ComputeAggregates(nil)
	assert.Zero(t, agg.TotalScore)
	assert.Zero(t, agg.AverageScore)
	assert.Nil(t, agg.FinalGrade)
}

func TestComputeAggregates(t *testing.T) {
	cases := []struct {
		in    []models.Grade
		total int
		avg   float64
		final models.Grade
	}{
		{grades("A", "A", "A"), 12, 4.0, models.GradeA},
		{grades("A", "B"), 7, 3.5, models.GradeA},
		{grades("B", "B", "C"), 8, 2.67, models.GradeB},
		{grades("C", "C"), 4, 2.0, models.GradeC},
		{grades("D"), 1, 1.0, models.GradeD},
		{grades("A", "D"), 5, 2.5, models.GradeB},
	}
	for _, tc := range cases {
		agg := ComputeAggregates(tc.in)
		assert.Equal(t, tc.total, agg.TotalScore, "total for %v", tc.in)
		assert.InDelta(t, tc.avg, agg.AverageScore, 0.001, "average for %v", tc.in)
		require.NotNil(t, agg.FinalGrade, "final grade for %v", tc.in)
		assert.Equal(t, tc.final, *agg.FinalGrade, "final grade for %v", tc.in)
	}
}

func TestGradeForAverageBoundaries(t *testing.T) {
	assert.Equal(t, models.GradeA, models.GradeForAverage(3.5))
	assert.Equal(t, models.GradeB, models.GradeForAverage(3.49))
	assert.Equal(t, models.GradeB, models.GradeForAverage(2.5))
	assert.Equal(t, models.GradeC, models.GradeForAverage(2.49))
	assert.Equal(t, models.GradeC, models.GradeForAverage(1.5))
	assert.Equal(t, models.GradeD, models.GradeForAverage(1.49))
}

func TestGradeScores(t *testing.T) {
	assert.Equal(t, 4, models.GradeA.Score())
	assert.Equal(t, 1, models.GradeD.Score())
	assert.Equal(t, 0, models.Grade("X").Score())
	assert.False(t, models.ValidGrade("E"))
	assert.True(t, models.ValidGrade("B"))
}
