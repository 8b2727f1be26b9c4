package dashboard

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sekolah-admin/backend/internal/auth"
	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/response"
)

// Handler handles GET /dashboard. It reads aggregates straight off the pool;
// the queries cross too many features to belong to any one repository.
type Handler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(pool *pgxpool.Pool, logger *zap.Logger) *Handler {
	return &Handler{pool: pool, logger: logger}
}

// AdminSummary is the dashboard JSON for admin users.
type AdminSummary struct {
	UsersByRole        map[string]int `json:"users_by_role"`
	TotalOrganizations int            `json:"total_organizations"`
	ActivePeriod       *models.Period `json:"active_period"`
	UnreadMessages     int            `json:"unread_messages"`
	PendingRPP         int            `json:"pending_rpp"`
	EvaluationsInPeriod int           `json:"evaluations_in_period"`
}

// GuruSummary is the dashboard JSON for teachers.
type GuruSummary struct {
	ActivePeriod   *models.Period `json:"active_period"`
	MySubmissions  map[string]int `json:"my_submissions_by_status"`
	MyAverageScore *float64       `json:"my_average_score"`
	MyFinalGrade   *string        `json:"my_final_grade"`
}

func (h *Handler) activePeriod(c *gin.Context) (*models.Period, error) {
	const q = `SELECT id, academic_year, semester, start_date, end_date, is_active,
		COALESCE(description,''), created_by, updated_by, created_at, updated_at
		FROM periods WHERE is_active`
	var p models.Period
	err := h.pool.QueryRow(c.Request.Context(), q).Scan(&p.ID, &p.AcademicYear, &p.Semester,
		&p.StartDate, &p.EndDate, &p.IsActive, &p.Description, &p.CreatedBy, &p.UpdatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Admin handles GET /dashboard/admin.
func (h *Handler) Admin(c *gin.Context) {
	ctx := c.Request.Context()
	var s AdminSummary

	period, err := h.activePeriod(c)
	if err != nil {
		h.logger.Error("dashboard active period", zap.Error(err))
		response.Internal(c, "failed to build dashboard")
		return
	}
	s.ActivePeriod = period

	s.UsersByRole = map[string]int{}
	rows, err := h.pool.Query(ctx, `SELECT r.role_name, COUNT(*)
		FROM users u JOIN user_roles r ON r.user_id = u.id
		WHERE u.deleted_at IS NULL GROUP BY r.role_name`)
	if err != nil {
		response.Internal(c, "failed to build dashboard")
		return
	}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			rows.Close()
			response.Internal(c, "failed to build dashboard")
			return
		}
		s.UsersByRole[role] = n
	}
	rows.Close()
	if rows.Err() != nil {
		response.Internal(c, "failed to build dashboard")
		return
	}

	counts := []struct {
		q    string
		args []interface{}
		dst  *int
	}{
		{`SELECT COUNT(*) FROM organizations`, nil, &s.TotalOrganizations},
		{`SELECT COUNT(*) FROM messages WHERE status = 'UNREAD'`, nil, &s.UnreadMessages},
		{`SELECT COUNT(*) FROM rpp_submissions WHERE status = 'pending'`, nil, &s.PendingRPP},
	}
	if period != nil {
		counts = append(counts, struct {
			q    string
			args []interface{}
			dst  *int
		}{`SELECT COUNT(*) FROM teacher_evaluations WHERE period_id = $1`, []interface{}{period.ID}, &s.EvaluationsInPeriod})
	}
	for _, cq := range counts {
		if err := h.pool.QueryRow(ctx, cq.q, cq.args...).Scan(cq.dst); err != nil {
			h.logger.Error("dashboard count", zap.String("query", cq.q), zap.Error(err))
			response.Internal(c, "failed to build dashboard")
			return
		}
	}
	response.OK(c, s)
}

// Guru handles GET /dashboard/guru for the logged-in teacher.
func (h *Handler) Guru(c *gin.Context) {
	ctx := c.Request.Context()
	teacherID := auth.UserID(c)
	var s GuruSummary

	period, err := h.activePeriod(c)
	if err != nil {
		h.logger.Error("dashboard active period", zap.Error(err))
		response.Internal(c, "failed to build dashboard")
		return
	}
	s.ActivePeriod = period

	s.MySubmissions = map[string]int{}
	subQ := `SELECT status, COUNT(*) FROM rpp_submissions WHERE teacher_id = $1`
	args := []interface{}{teacherID}
	if period != nil {
		subQ += ` AND period_id = $2`
		args = append(args, period.ID)
	}
	subQ += ` GROUP BY status`
	rows, err := h.pool.Query(ctx, subQ, args...)
	if err != nil {
		response.Internal(c, "failed to build dashboard")
		return
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			response.Internal(c, "failed to build dashboard")
			return
		}
		s.MySubmissions[status] = n
	}
	rows.Close()
	if rows.Err() != nil {
		response.Internal(c, "failed to build dashboard")
		return
	}

	if period != nil {
		const evalQ = `SELECT average_score, final_grade FROM teacher_evaluations
			WHERE teacher_id = $1 AND period_id = $2
			ORDER BY updated_at DESC LIMIT 1`
		var avg float64
		var grade *string
		err := h.pool.QueryRow(ctx, evalQ, teacherID, period.ID).Scan(&avg, &grade)
		if err == nil {
			s.MyAverageScore = &avg
			s.MyFinalGrade = grade
		}
	}
	response.OK(c, s)
}
