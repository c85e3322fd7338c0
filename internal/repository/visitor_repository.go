package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-stats-api/internal/models"
)

const visitorCounterID = "visitor_count"

// VisitorRepository maintains the dashboard visit counter.
type VisitorRepository struct {
	db *sqlx.DB
}

// NewVisitorRepository creates a new VisitorRepository.
func NewVisitorRepository(db *sqlx.DB) *VisitorRepository {
	return &VisitorRepository{db: db}
}

// Increment atomically bumps the counter and returns its new value.
func (r *VisitorRepository) Increment(ctx context.Context, at time.Time) (*models.VisitorCounter, error) {
	const query = `INSERT INTO site_metrics (id, total, updated_at) VALUES ($1, 1, $2)
ON CONFLICT (id) DO UPDATE SET total = site_metrics.total + 1, updated_at = EXCLUDED.updated_at
RETURNING total, updated_at`
	var counter models.VisitorCounter
	if err := r.db.GetContext(ctx, &counter, query, visitorCounterID, at); err != nil {
		return nil, fmt.Errorf("increment visitor counter: %w", err)
	}
	return &counter, nil
}

// Get returns the counter, zero when it was never incremented.
func (r *VisitorRepository) Get(ctx context.Context) (*models.VisitorCounter, error) {
	const query = `SELECT total, updated_at FROM site_metrics WHERE id = $1`
	var counter models.VisitorCounter
	if err := r.db.GetContext(ctx, &counter, query, visitorCounterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.VisitorCounter{}, nil
		}
		return nil, fmt.Errorf("get visitor counter: %w", err)
	}
	return &counter, nil
}
