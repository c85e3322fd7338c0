package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-stats-api/internal/dto"
	"github.com/noah-isme/teacher-stats-api/internal/models"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
)

type statsAggregator interface {
	Aggregate(ctx context.Context, token string, spec models.PeriodSpec, opts AggregateOptions) (*models.StatisticsReport, error)
}

type accountWriter interface {
	Upsert(ctx context.Context, account *models.TeacherAccount) error
}

type visitorCounter interface {
	Increment(ctx context.Context, at time.Time) (*models.VisitorCounter, error)
}

// ComputeOptions tunes one statistics request.
type ComputeOptions struct {
	Refresh     bool
	Concurrency int
	// Kind overrides the record kind derived from the period.
	Kind models.StatsRecordKind
	// Identity overrides the identity decoded from the token.
	Identity    *TokenIdentity
	RequestedBy string
}

// TeacherStatsService serves statistics to teachers and records their sessions.
type TeacherStatsService struct {
	aggregator statsAggregator
	cache      *CacheService
	persister  ResultPersister
	accounts   accountWriter
	visitors   visitorCounter
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewTeacherStatsService wires the teacher-facing use cases.
func NewTeacherStatsService(aggregator statsAggregator, cache *CacheService, persister ResultPersister, accounts accountWriter, visitors visitorCounter, cacheTTL time.Duration, logger *zap.Logger) *TeacherStatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherStatsService{
		aggregator: aggregator,
		cache:      cache,
		persister:  persister,
		accounts:   accounts,
		visitors:   visitors,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// StartSession records the teacher behind token, drops its cached reports and bumps the
// visitor counter.
func (s *TeacherStatsService) StartSession(ctx context.Context, token string) (*dto.SessionResponse, error) {
	if token == "" {
		return nil, appErrors.ErrMissingUpstreamToken
	}
	if err := ValidateTokenFormat(token); err != nil {
		return nil, err
	}

	identity := ParseTokenIdentity(token)
	now := s.now().UTC()
	account := &models.TeacherAccount{
		Email:      identity.Email,
		Phone:      identity.Phone,
		Token:      token,
		Month:      int(now.Month()),
		Year:       now.Year(),
		CapturedAt: now,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save session")
	}
	// A new session always starts from fresh upstream data.
	_ = s.cache.Invalidate(ctx, StatsCachePattern(token))

	resp := &dto.SessionResponse{Email: identity.Email, Phone: identity.Phone, CapturedAt: now}
	counter, err := s.visitors.Increment(ctx, now)
	if err != nil {
		s.logger.Warn("failed to increment visitor counter", zap.Error(err))
	} else {
		resp.Visitors = counter.Total
	}
	return resp, nil
}

// Compute returns the statistics for token over spec, from cache when possible.
// The second return value reports a cache hit.
func (s *TeacherStatsService) Compute(ctx context.Context, token string, spec models.PeriodSpec, opts ComputeOptions) (*models.StatisticsReport, bool, error) {
	if token == "" {
		return nil, false, appErrors.ErrMissingUpstreamToken
	}

	key := StatsCacheKey(token, spec)
	if !opts.Refresh {
		var cached models.StatisticsReport
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, true, nil
		}
	}

	report, err := s.aggregator.Aggregate(ctx, token, spec, AggregateOptions{Concurrency: opts.Concurrency})
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, upstreamError(err, "statistics run abandoned")
	}
	models.SortAbsencesNewestFirst(report.AbsentStudents)

	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		s.logger.Debug("statistics not cached", zap.Error(err))
	}
	s.persist(ctx, token, report, opts)
	return report, false, nil
}

func (s *TeacherStatsService) persist(ctx context.Context, token string, report *models.StatisticsReport, opts ComputeOptions) {
	if s.persister == nil {
		return
	}
	identity := ParseTokenIdentity(token)
	if opts.Identity != nil {
		identity = *opts.Identity
	}
	kind := opts.Kind
	if kind == "" {
		kind = models.StatsKindMonthly
		if report.Period.Kind == models.PeriodDateRange {
			kind = models.StatsKindDateRange
		}
	}

	record := models.NewStatsRecord(identity.Email, identity.Phone, kind, report)
	if opts.RequestedBy != "" {
		requestedBy := opts.RequestedBy
		record.RequestedBy = &requestedBy
	}
	if err := s.persister.Persist(ctx, record); err != nil {
		s.logger.Warn("failed to persist statistics", zap.String("key", record.RecordKey()), zap.Error(err))
	}
}
