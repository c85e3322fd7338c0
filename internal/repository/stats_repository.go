package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-stats-api/internal/models"
)

const statsRecordColumns = `id, email, phone, kind, period_key, year, month, start_date, end_date, total_finished_count, total_participation_score, total_classes, total_money, absent_students, processed_diaries, skipped_diaries, total_diaries, requested_by, created_at, updated_at`

// StatsRepository persists computed teacher statistics.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Upsert writes a record, replacing an earlier one for the same teacher, kind and period.
func (r *StatsRepository) Upsert(ctx context.Context, record *models.StatsRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.AbsentStudents == nil {
		record.AbsentStudents = models.AbsenceList{}
	}

	const query = `INSERT INTO teacher_stats (` + statsRecordColumns + `)
VALUES (:id, :email, :phone, :kind, :period_key, :year, :month, :start_date, :end_date, :total_finished_count, :total_participation_score, :total_classes, :total_money, :absent_students, :processed_diaries, :skipped_diaries, :total_diaries, :requested_by, :created_at, :updated_at)
ON CONFLICT (email, kind, period_key) DO UPDATE SET
	phone = EXCLUDED.phone,
	total_finished_count = EXCLUDED.total_finished_count,
	total_participation_score = EXCLUDED.total_participation_score,
	total_classes = EXCLUDED.total_classes,
	total_money = EXCLUDED.total_money,
	absent_students = EXCLUDED.absent_students,
	processed_diaries = EXCLUDED.processed_diaries,
	skipped_diaries = EXCLUDED.skipped_diaries,
	total_diaries = EXCLUDED.total_diaries,
	requested_by = EXCLUDED.requested_by,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert teacher stats: %w", err)
	}
	return nil
}

// List returns stats records matching filter with the total count.
func (r *StatsRepository) List(ctx context.Context, filter models.StatsRecordFilter) ([]models.StatsRecord, int, error) {
	baseQuery := `FROM teacher_stats WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, *filter.Kind)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR phone LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"timestamp":   "updated_at",
		"updated_at":  "updated_at",
		"email":       "email",
		"total_money": "total_money",
	}
	sortBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortBy = "updated_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", statsRecordColumns, baseQuery, sortBy, sortOrder, pageSize, offset)
	var records []models.StatsRecord
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list teacher stats: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count teacher stats: %w", err)
	}
	return records, total, nil
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
