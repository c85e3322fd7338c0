package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/teacher-stats-api/internal/models"
)

// AccountRepository stores the identity and last token captured for each teacher.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert records the latest session of a teacher keyed by email.
func (r *AccountRepository) Upsert(ctx context.Context, account *models.TeacherAccount) error {
	const query = `INSERT INTO teacher_accounts (email, phone, token, month, year, captured_at)
VALUES (:email, :phone, :token, :month, :year, :captured_at)
ON CONFLICT (email) DO UPDATE SET phone = EXCLUDED.phone, token = EXCLUDED.token, month = EXCLUDED.month, year = EXCLUDED.year, captured_at = EXCLUDED.captured_at`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("upsert teacher account: %w", err)
	}
	return nil
}

// FindByEmail returns one account. sql.ErrNoRows is returned unwrapped.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.TeacherAccount, error) {
	const query = `SELECT email, phone, token, month, year, captured_at FROM teacher_accounts WHERE email = $1 LIMIT 1`
	var account models.TeacherAccount
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher account: %w", err)
	}
	return &account, nil
}

// List returns accounts ordered by most recent capture.
func (r *AccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.TeacherAccount, int, error) {
	baseQuery := `FROM teacher_accounts`
	var args []interface{}
	if filter.Search != "" {
		baseQuery += ` WHERE (LOWER(email) LIKE $1 OR phone LIKE $1)`
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT email, phone, token, month, year, captured_at %s ORDER BY captured_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, (page-1)*pageSize)

	var accounts []models.TeacherAccount
	if err := r.db.SelectContext(ctx, &accounts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list teacher accounts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", baseQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count teacher accounts: %w", err)
	}
	return accounts, total, nil
}
