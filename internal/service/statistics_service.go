package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
	"github.com/noah-isme/teacher-stats-api/pkg/limiter"
	"github.com/noah-isme/teacher-stats-api/pkg/period"
	"github.com/noah-isme/teacher-stats-api/pkg/scheduleapi"
)

// Stage names one step of an aggregation run.
type Stage string

const (
	StageValidating      Stage = "VALIDATING"
	StageListingProducts Stage = "LISTING_PRODUCTS"
	StageListingShifts   Stage = "LISTING_SHIFTS"
	StageFiltering       Stage = "FILTERING"
	StageFetchingDiaries Stage = "FETCHING_DIARIES"
	StageScoring         Stage = "SCORING"
	StageReducing        Stage = "REDUCING"
	StageDone            Stage = "DONE"
	StageFailed          Stage = "FAILED"
)

const (
	defaultUnitRate     = 50000
	defaultMaxRangeDays = 365
)

// ScheduleClient is the subset of the schedule platform API the aggregator needs.
type ScheduleClient interface {
	ListActiveProducts(ctx context.Context, token string) ([]string, error)
	ListShifts(ctx context.Context, token string, window period.Window, productIDs []string) ([]models.ClassShift, error)
	GetDiary(ctx context.Context, token, classSessionID string) (*models.DiaryRecord, error)
}

// ProgressObserver receives stage transitions and the finished class count of a run.
type ProgressObserver interface {
	OnStage(stage Stage)
	OnFinishedClasses(count int)
}

// AggregateOptions tunes a single run.
type AggregateOptions struct {
	Concurrency int
	Observer    ProgressObserver
}

// StatisticsConfig holds the pipeline settings.
type StatisticsConfig struct {
	UnitRate     float64
	Concurrency  int
	MaxRangeDays int
	Location     *time.Location
}

// StatisticsService turns a token and period into payroll statistics.
type StatisticsService struct {
	client  ScheduleClient
	cfg     StatisticsConfig
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewStatisticsService constructs the aggregator.
func NewStatisticsService(client ScheduleClient, cfg StatisticsConfig, metrics *MetricsService, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UnitRate <= 0 {
		cfg.UnitRate = defaultUnitRate
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = limiter.DefaultConcurrency
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = defaultMaxRangeDays
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &StatisticsService{client: client, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

// Location returns the zone used for custom date ranges.
func (s *StatisticsService) Location() *time.Location {
	return s.cfg.Location
}

// Aggregate runs the full pipeline. Listing failures abort the run; diary failures are skipped.
func (s *StatisticsService) Aggregate(ctx context.Context, token string, spec models.PeriodSpec, opts AggregateOptions) (report *models.StatisticsReport, err error) {
	started := s.now()
	run := &aggregationRun{svc: s, token: token, observer: opts.Observer}
	defer func() {
		s.metrics.ObserveAggregation(string(spec.Kind), err == nil, s.now().Sub(started))
		if err != nil {
			run.enter(StageFailed)
			s.logger.Warn("statistics aggregation failed", zap.String("period", spec.Key()), zap.Error(err))
		}
	}()

	run.enter(StageValidating)
	if token == "" {
		return nil, appErrors.ErrMissingUpstreamToken
	}
	spec, windows, err := s.partition(spec)
	if err != nil {
		return nil, err
	}

	run.enter(StageListingProducts)
	productIDs, err := s.client.ListActiveProducts(ctx, token)
	if err != nil {
		return nil, upstreamError(err, "failed to list products")
	}

	run.enter(StageListingShifts)
	shifts, err := run.listShifts(ctx, windows, productIDs)
	if err != nil {
		return nil, upstreamError(err, "failed to list shifts")
	}

	run.enter(StageFiltering)
	finished := make([]models.ClassShift, 0, len(shifts))
	for _, shift := range shifts {
		if shift.Finished() {
			finished = append(finished, shift)
		}
	}
	if opts.Observer != nil {
		opts.Observer.OnFinishedClasses(len(finished))
	}

	run.enter(StageFetchingDiaries)
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = s.cfg.Concurrency
	}
	diaries := run.fetchDiaries(ctx, finished, concurrency)
	if err := ctx.Err(); err != nil {
		// A cancelled run never reduces: unfetched diaries are not skips.
		return nil, upstreamError(err, "statistics run abandoned")
	}

	run.enter(StageScoring)
	ledger := NewAbsenceLedger()
	processed, skipped := 0, 0
	for i, res := range diaries {
		if res.Err != nil {
			skipped++
			continue
		}
		processed++
		class := ClassContext{FromDate: finished[i].FromDate, ClassName: finished[i].ClassName}
		if dup := ledger.Add(ScoreClass(res.Value.Details, class)); dup > 0 {
			s.logger.Debug("duplicate absence suppressed",
				zap.String("class", class.ClassName), zap.String("from", class.FromDate), zap.Int("events", dup))
		}
	}
	s.metrics.ObserveDiaries(processed, skipped)

	run.enter(StageReducing)
	result := models.NewStatisticsResult(len(finished), ledger.Score(), s.cfg.UnitRate, ledger.Events())
	report = &models.StatisticsReport{
		StatisticsResult: result,
		Period:           spec,
		UnitRate:         s.cfg.UnitRate,
		Diagnostics: models.RunDiagnostics{
			Windows:          len(windows),
			ProcessedDiaries: processed,
			SkippedDiaries:   skipped,
			TotalDiaries:     len(finished),
			DurationMs:       s.now().Sub(started).Milliseconds(),
		},
		GeneratedAt: s.now().UTC(),
	}

	run.enter(StageDone)
	s.logger.Info("statistics aggregated",
		zap.String("period", spec.Key()),
		zap.Int("finished", result.TotalFinishedCount),
		zap.Float64("score", result.TotalParticipationScore),
		zap.Int("skipped_diaries", skipped),
	)
	return report, nil
}

// partition validates spec and returns it normalised together with its windows.
func (s *StatisticsService) partition(spec models.PeriodSpec) (models.PeriodSpec, []period.Window, error) {
	switch spec.Kind {
	case models.PeriodMonthly:
		windows, err := period.Month(spec.Year, spec.Month)
		if err != nil {
			return spec, nil, validationError(err, "month must be between 1 and 12")
		}
		return spec, windows, nil
	case models.PeriodDateRange:
		if spec.StartDate.IsZero() || spec.EndDate.IsZero() {
			return spec, nil, appErrors.Clone(appErrors.ErrValidation, "start and end dates are required")
		}
		from, to, err := period.Bounds(spec.StartDate, spec.EndDate, s.cfg.Location)
		if err != nil {
			return spec, nil, validationError(err, "start date must not be after end date")
		}
		if days := period.Span(from, to, s.cfg.Location); days > s.cfg.MaxRangeDays {
			return spec, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range must not exceed %d days", s.cfg.MaxRangeDays))
		}
		windows, err := period.Range(from, to, s.cfg.Location)
		if err != nil {
			return spec, nil, validationError(err, "invalid date range")
		}
		spec.StartDate, spec.EndDate = period.StartOfDay(from), period.StartOfDay(to)
		return spec, windows, nil
	default:
		return spec, nil, appErrors.Clone(appErrors.ErrValidation, "period must be monthly or a date range")
	}
}

type aggregationRun struct {
	svc      *StatisticsService
	token    string
	observer ProgressObserver
}

func (r *aggregationRun) enter(stage Stage) {
	r.svc.logger.Debug("aggregation stage", zap.String("stage", string(stage)))
	if r.observer != nil {
		r.observer.OnStage(stage)
	}
}

func (r *aggregationRun) listShifts(ctx context.Context, windows []period.Window, productIDs []string) ([]models.ClassShift, error) {
	perWindow := make([][]models.ClassShift, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i, window := range windows {
		i, window := i, window
		g.Go(func() error {
			shifts, err := r.svc.client.ListShifts(gctx, r.token, window, productIDs)
			if err != nil {
				return err
			}
			perWindow[i] = shifts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []models.ClassShift
	for _, shifts := range perWindow {
		flat = append(flat, shifts...)
	}
	return flat, nil
}

func (r *aggregationRun) fetchDiaries(ctx context.Context, finished []models.ClassShift, concurrency int) []limiter.Result[*models.DiaryRecord] {
	tasks := make([]limiter.Task[*models.DiaryRecord], len(finished))
	for i, shift := range finished {
		id := shift.ClassSessionID.String()
		tasks[i] = func(ctx context.Context) (*models.DiaryRecord, error) {
			diary, err := r.svc.client.GetDiary(ctx, r.token, id)
			if err != nil {
				r.svc.logger.Debug("diary skipped", zap.String("class_session_id", id), zap.String("reason", skipReason(err)), zap.Error(err))
				return nil, err
			}
			return diary, nil
		}
	}
	l := limiter.New(concurrency)
	results := limiter.Execute(ctx, l, tasks)
	r.svc.metrics.ObserveDiaryConcurrency(l.Peak())
	return results
}

func skipReason(err error) string {
	var formatErr *scheduleapi.FormatError
	switch {
	case errors.Is(err, scheduleapi.ErrDiaryNotFound):
		return "not_found"
	case scheduleapi.IsTimeout(err):
		return "timeout"
	case scheduleapi.StatusCode(err) != 0:
		return fmt.Sprintf("status_%d", scheduleapi.StatusCode(err))
	case errors.As(err, &formatErr):
		return "format"
	default:
		return "network"
	}
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// upstreamError maps a fatal schedule platform failure onto the HTTP-aware error taxonomy.
// The original error stays reachable through errors.As.
func upstreamError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch code := scheduleapi.StatusCode(err); {
	case code == http.StatusUnauthorized:
		return appErrors.Wrap(err, appErrors.ErrUpstreamUnauthorized.Code, appErrors.ErrUpstreamUnauthorized.Status, appErrors.ErrUpstreamUnauthorized.Message)
	case code == http.StatusForbidden:
		return appErrors.Wrap(err, appErrors.ErrUpstreamForbidden.Code, appErrors.ErrUpstreamForbidden.Status, appErrors.ErrUpstreamForbidden.Message)
	case scheduleapi.IsTimeout(err):
		return appErrors.Wrap(err, appErrors.ErrUpstreamTimeout.Code, appErrors.ErrUpstreamTimeout.Status, appErrors.ErrUpstreamTimeout.Message)
	case errors.Is(err, context.Canceled):
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request cancelled")
	default:
		return appErrors.Wrap(err, appErrors.ErrUpstreamFailure.Code, appErrors.ErrUpstreamFailure.Status, message)
	}
}
