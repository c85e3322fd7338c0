package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
)

type statsLogReader interface {
	List(ctx context.Context, filter models.StatsRecordFilter) ([]models.StatsRecord, int, error)
}

type accountReader interface {
	List(ctx context.Context, filter models.AccountFilter) ([]models.TeacherAccount, int, error)
	FindByEmail(ctx context.Context, email string) (*models.TeacherAccount, error)
}

type visitorReader interface {
	Get(ctx context.Context) (*models.VisitorCounter, error)
}

type statsComputer interface {
	Compute(ctx context.Context, token string, spec models.PeriodSpec, opts ComputeOptions) (*models.StatisticsReport, bool, error)
}

// AdminService backs the operator views over captured accounts and computed statistics.
type AdminService struct {
	stats    statsLogReader
	accounts accountReader
	visitors visitorReader
	computer statsComputer
	logger   *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(stats statsLogReader, accounts accountReader, visitors visitorReader, computer statsComputer, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{stats: stats, accounts: accounts, visitors: visitors, computer: computer, logger: logger}
}

// ListStats pages through the stats log.
func (s *AdminService) ListStats(ctx context.Context, filter models.StatsRecordFilter) ([]models.StatsRecord, *models.Pagination, error) {
	records, total, err := s.stats.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list statistics")
	}
	if records == nil {
		records = []models.StatsRecord{}
	}
	return records, pagination(filter.Page, filter.PageSize, total), nil
}

// ListTeachers pages through captured accounts without their tokens.
func (s *AdminService) ListTeachers(ctx context.Context, filter models.AccountFilter) ([]models.TeacherAccount, *models.Pagination, error) {
	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	redacted := make([]models.TeacherAccount, len(accounts))
	for i, account := range accounts {
		redacted[i] = account.Redacted()
	}
	return redacted, pagination(filter.Page, filter.PageSize, total), nil
}

// GetTeacher returns one account including its captured token.
func (s *AdminService) GetTeacher(ctx context.Context, email string) (*models.TeacherAccount, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return account, nil
}

// Recompute re-runs the statistics of a teacher with their stored token on behalf of adminEmail.
func (s *AdminService) Recompute(ctx context.Context, email string, spec models.PeriodSpec, concurrency int, adminEmail string) (*models.StatisticsReport, error) {
	account, err := s.GetTeacher(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := ValidateTokenFormat(account.Token); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTokenFormat, "invalid token format, please check the teacher's stored token")
	}

	report, _, err := s.computer.Compute(ctx, account.Token, spec, ComputeOptions{
		Refresh:     true,
		Concurrency: concurrency,
		Kind:        models.StatsKindAdmin,
		Identity:    &TokenIdentity{Email: account.Email, Phone: account.Phone},
		RequestedBy: adminEmail,
	})
	if err != nil {
		s.logger.Info("admin recompute failed", zap.String("teacher", email), zap.String("admin", adminEmail), zap.Error(err))
		return nil, err
	}
	return report, nil
}

// Visitors returns the dashboard visit counter.
func (s *AdminService) Visitors(ctx context.Context) (*models.VisitorCounter, error) {
	counter, err := s.visitors.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visitor counter")
	}
	return counter, nil
}

func pagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
