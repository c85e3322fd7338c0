package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
)

type stubStatsLog struct {
	records []models.StatsRecord
	total   int
	err     error
	filter  models.StatsRecordFilter
}

func (s *stubStatsLog) List(_ context.Context, filter models.StatsRecordFilter) ([]models.StatsRecord, int, error) {
	s.filter = filter
	return s.records, s.total, s.err
}

type stubAccountReader struct {
	accounts []models.TeacherAccount
	err      error
}

func (s *stubAccountReader) List(context.Context, models.AccountFilter) ([]models.TeacherAccount, int, error) {
	return s.accounts, len(s.accounts), s.err
}

func (s *stubAccountReader) FindByEmail(_ context.Context, email string) (*models.TeacherAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, account := range s.accounts {
		if account.Email == email {
			found := account
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubVisitorReader struct {
	counter *models.VisitorCounter
}

func (s *stubVisitorReader) Get(context.Context) (*models.VisitorCounter, error) {
	return s.counter, nil
}

type stubComputer struct {
	token string
	opts  ComputeOptions
	err   error
}

func (s *stubComputer) Compute(_ context.Context, token string, spec models.PeriodSpec, opts ComputeOptions) (*models.StatisticsReport, bool, error) {
	s.token = token
	s.opts = opts
	if s.err != nil {
		return nil, false, s.err
	}
	return &models.StatisticsReport{Period: spec}, false, nil
}

func TestAdminListStatsPaginates(t *testing.T) {
	log := &stubStatsLog{records: []models.StatsRecord{{Email: "a@example.com"}}, total: 41}
	svc := NewAdminService(log, &stubAccountReader{}, nil, nil, nil)

	records, page, err := svc.ListStats(context.Background(), models.StatsRecordFilter{Page: 3, PageSize: 20, Search: "a@"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, &models.Pagination{Page: 3, PageSize: 20, TotalCount: 41}, page)
	assert.Equal(t, "a@", log.filter.Search)

	log.records, log.total = nil, 0
	records, page, err = svc.ListStats(context.Background(), models.StatsRecordFilter{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Equal(t, 1, page.Page)

	log.err = errors.New("db down")
	_, _, err = svc.ListStats(context.Background(), models.StatsRecordFilter{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAdminListTeachersRedactsTokens(t *testing.T) {
	accounts := &stubAccountReader{accounts: []models.TeacherAccount{{Email: "a@example.com", Token: "secret"}}}
	svc := NewAdminService(&stubStatsLog{}, accounts, nil, nil, nil)

	list, page, err := svc.ListTeachers(context.Background(), models.AccountFilter{})
	require.NoError(t, err)
	assert.Empty(t, list[0].Token)
	assert.Equal(t, 1, page.TotalCount)

	detail, err := svc.GetTeacher(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "secret", detail.Token)

	_, err = svc.GetTeacher(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAdminRecomputeUsesStoredToken(t *testing.T) {
	token := teacherToken(t, jwt.MapClaims{"email": "a@example.com"})
	accounts := &stubAccountReader{accounts: []models.TeacherAccount{{Email: "a@example.com", Phone: "0900", Token: token}}}
	computer := &stubComputer{}
	svc := NewAdminService(&stubStatsLog{}, accounts, nil, computer, nil)

	report, err := svc.Recompute(context.Background(), "a@example.com", models.MonthlyPeriod(2025, 5), 3, "admin@example.com")
	require.NoError(t, err)

	assert.Equal(t, 5, report.Period.Month)
	assert.Equal(t, token, computer.token)
	assert.True(t, computer.opts.Refresh)
	assert.Equal(t, 3, computer.opts.Concurrency)
	assert.Equal(t, models.StatsKindAdmin, computer.opts.Kind)
	assert.Equal(t, "admin@example.com", computer.opts.RequestedBy)
	assert.Equal(t, &TokenIdentity{Email: "a@example.com", Phone: "0900"}, computer.opts.Identity)
}

func TestAdminRecomputeRejectsMalformedStoredToken(t *testing.T) {
	accounts := &stubAccountReader{accounts: []models.TeacherAccount{{Email: "a@example.com", Token: "garbage"}}}
	computer := &stubComputer{}
	svc := NewAdminService(&stubStatsLog{}, accounts, nil, computer, nil)

	_, err := svc.Recompute(context.Background(), "a@example.com", models.MonthlyPeriod(2025, 5), 0, "admin@example.com")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTokenFormat)
	assert.Empty(t, computer.token)
}

func TestAdminRecomputeSurfacesUpstreamErrors(t *testing.T) {
	accounts := &stubAccountReader{accounts: []models.TeacherAccount{{Email: "a@example.com", Token: "a.b.c"}}}
	svc := NewAdminService(&stubStatsLog{}, accounts, nil, &stubComputer{err: appErrors.ErrUpstreamForbidden}, nil)

	_, err := svc.Recompute(context.Background(), "a@example.com", models.MonthlyPeriod(2025, 5), 0, "admin@example.com")
	assert.ErrorIs(t, err, appErrors.ErrUpstreamForbidden)
}

func TestAdminVisitors(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewAdminService(nil, nil, &stubVisitorReader{counter: &models.VisitorCounter{Total: 9, UpdatedAt: now}}, nil, nil)

	counter, err := svc.Visitors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), counter.Total)
}
