package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/teacher-stats-api/internal/dto"
	"github.com/noah-isme/teacher-stats-api/internal/middleware"
	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/internal/service"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
	"github.com/noah-isme/teacher-stats-api/pkg/export"
	"github.com/noah-isme/teacher-stats-api/pkg/response"
)

type teacherStatsService interface {
	StartSession(ctx context.Context, token string) (*dto.SessionResponse, error)
	Compute(ctx context.Context, token string, spec models.PeriodSpec, opts service.ComputeOptions) (*models.StatisticsReport, bool, error)
}

type absenceExporter interface {
	AbsenceRoster(report *models.StatisticsReport, format export.Format) (*service.ExportFile, error)
}

// StatsHandler serves the teacher-facing statistics endpoints.
type StatsHandler struct {
	stats    teacherStatsService
	exporter absenceExporter
	validate *validator.Validate
	loc      *time.Location
}

// NewStatsHandler constructs a StatsHandler. Range dates are read in loc.
func NewStatsHandler(stats teacherStatsService, exporter absenceExporter, validate *validator.Validate, loc *time.Location) *StatsHandler {
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.Local
	}
	return &StatsHandler{stats: stats, exporter: exporter, validate: validate, loc: loc}
}

// Session godoc
// @Summary Start a teacher session
// @Description Records the teacher behind the schedule platform token and bumps the visitor counter
// @Tags Statistics
// @Produce json
// @Param Authorization header string true "Schedule platform token"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /session [post]
func (h *StatsHandler) Session(c *gin.Context) {
	res, err := h.stats.StartSession(c.Request.Context(), middleware.UpstreamTokenValue(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Monthly godoc
// @Summary Monthly statistics
// @Description Aggregates finished classes, participation score and absences for one calendar month
// @Tags Statistics
// @Accept json
// @Produce json
// @Param Authorization header string true "Schedule platform token"
// @Param payload body dto.MonthlyStatsRequest true "Month selection"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /stats/monthly [post]
func (h *StatsHandler) Monthly(c *gin.Context) {
	var req dto.MonthlyStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid monthly payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, validationFailure(err))
		return
	}
	h.respond(c, req.Period(), req.Concurrency)
}

// Range godoc
// @Summary Date range statistics
// @Description Aggregates statistics between two local dates, both inclusive
// @Tags Statistics
// @Accept json
// @Produce json
// @Param Authorization header string true "Schedule platform token"
// @Param payload body dto.RangeStatsRequest true "Date range"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /stats/range [post]
func (h *StatsHandler) Range(c *gin.Context) {
	var req dto.RangeStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid range payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, validationFailure(err))
		return
	}
	spec, err := req.Period(h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	h.respond(c, spec, req.Concurrency)
}

// ExportAbsences godoc
// @Summary Export absent students
// @Description Renders the absence roster of a month or date range as CSV or PDF
// @Tags Statistics
// @Produce text/csv
// @Produce application/pdf
// @Param Authorization header string true "Schedule platform token"
// @Param format query string false "csv or pdf"
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /stats/absences/export [get]
func (h *StatsHandler) ExportAbsences(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	spec, err := query.Period(h.loc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}

	report, _, err := h.stats.Compute(c.Request.Context(), middleware.UpstreamTokenValue(c), spec, service.ComputeOptions{Refresh: refreshRequested(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.AbsenceRoster(report, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

func (h *StatsHandler) respond(c *gin.Context, spec models.PeriodSpec, concurrency int) {
	report, hit, err := h.stats.Compute(c.Request.Context(), middleware.UpstreamTokenValue(c), spec, service.ComputeOptions{
		Refresh:     refreshRequested(c),
		Concurrency: concurrency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}
