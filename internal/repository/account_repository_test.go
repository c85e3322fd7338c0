package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-stats-api/internal/models"
)

func TestAccountUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO teacher_accounts .* ON CONFLICT \\(email\\)").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), &models.TeacherAccount{Email: "t@example.com", Phone: "0900", Token: "tok", Month: 1, Year: 2025, CapturedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_accounts WHERE email = $1")).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, phone, token, month, year, captured_at FROM teacher_accounts WHERE (LOWER(email) LIKE $1 OR phone LIKE $1) ORDER BY captured_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("%0900%").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone", "token", "month", "year", "captured_at"}).
			AddRow("t@example.com", "0900", "tok", 1, 2025, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teacher_accounts WHERE")).
		WithArgs("%0900%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	accounts, total, err := repo.List(context.Background(), models.AccountFilter{Search: "0900"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "tok", accounts[0].Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitorIncrementAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVisitorRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO site_metrics .* RETURNING total, updated_at").
		WithArgs("visitor_count", now).
		WillReturnRows(sqlmock.NewRows([]string{"total", "updated_at"}).AddRow(42, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total, updated_at FROM site_metrics WHERE id = $1")).
		WithArgs("visitor_count").
		WillReturnError(sql.ErrNoRows)

	counter, err := repo.Increment(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(42), counter.Total)

	empty, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM admin_users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "last_login", "created_at", "updated_at"}).
			AddRow("1", "admin@example.com", "hash", "Admin", string(models.RoleAdmin), true, nil, now, now))

	user, err := repo.FindByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Nil(t, user.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminCreateAndLastLogin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admin_users")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	user := &models.AdminUser{Email: "admin@example.com", PasswordHash: "hash", FullName: "Admin", Role: models.RoleSuperAdmin, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE admin_users SET last_login = $2")).
		WithArgs(user.ID, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateLastLogin(context.Background(), user.ID, ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}
