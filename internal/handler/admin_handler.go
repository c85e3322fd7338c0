package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/teacher-stats-api/internal/dto"
	"github.com/noah-isme/teacher-stats-api/internal/models"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
	"github.com/noah-isme/teacher-stats-api/pkg/response"
)

type adminService interface {
	ListStats(ctx context.Context, filter models.StatsRecordFilter) ([]models.StatsRecord, *models.Pagination, error)
	ListTeachers(ctx context.Context, filter models.AccountFilter) ([]models.TeacherAccount, *models.Pagination, error)
	GetTeacher(ctx context.Context, email string) (*models.TeacherAccount, error)
	Recompute(ctx context.Context, email string, spec models.PeriodSpec, concurrency int, adminEmail string) (*models.StatisticsReport, error)
	Visitors(ctx context.Context) (*models.VisitorCounter, error)
}

// AdminHandler exposes the operator endpoints.
type AdminHandler struct {
	admin    adminService
	validate *validator.Validate
	loc      *time.Location
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admin adminService, validate *validator.Validate, loc *time.Location) *AdminHandler {
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.Local
	}
	return &AdminHandler{admin: admin, validate: validate, loc: loc}
}

// ListStats godoc
// @Summary Browse computed statistics
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Email or phone fragment"
// @Param kind query string false "monthly, date_range or admin"
// @Param sort query string false "timestamp, email or total_money"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) ListStats(c *gin.Context) {
	var query dto.StatsListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	records, page, err := h.admin.ListStats(c.Request.Context(), query.Filter())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, page)
}

// ListTeachers godoc
// @Summary Browse captured teacher accounts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Email or phone fragment"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	var query dto.AccountListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	accounts, page, err := h.admin.ListTeachers(c.Request.Context(), models.AccountFilter{
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PageSize: query.Limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, page)
}

// GetTeacher godoc
// @Summary Teacher account detail
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Teacher email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/teachers/{email} [get]
func (h *AdminHandler) GetTeacher(c *gin.Context) {
	account, err := h.admin.GetTeacher(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Recompute godoc
// @Summary Recompute statistics for a teacher
// @Description Re-runs the aggregation with the teacher's stored token. Send year+month or start_date+end_date.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param email path string true "Teacher email"
// @Param payload body dto.AdminRecomputeRequest true "Period"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /admin/teachers/{email}/stats [post]
func (h *AdminHandler) Recompute(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AdminRecomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recompute payload"))
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

	report, err := h.admin.Recompute(c.Request.Context(), c.Param("email"), spec, req.Concurrency, claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Visitors godoc
// @Summary Visitor counter
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/visitors [get]
func (h *AdminHandler) Visitors(c *gin.Context) {
	counter, err := h.admin.Visitors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counter, nil)
}
