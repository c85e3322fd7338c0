package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/teacher-stats-api/internal/models"
)

// MonthlyStatsRequest captures POST /stats/monthly payload.
type MonthlyStatsRequest struct {
	Year        int `json:"year" validate:"required,min=2000,max=2100"`
	Month       int `json:"month" validate:"required,min=1,max=12"`
	Concurrency int `json:"concurrency,omitempty" validate:"omitempty,min=1,max=30"`
}

// Period converts the request into a monthly period.
func (r MonthlyStatsRequest) Period() models.PeriodSpec {
	return models.MonthlyPeriod(r.Year, r.Month)
}

// RangeStatsRequest captures POST /stats/range payload. Dates are YYYY-MM-DD local days.
type RangeStatsRequest struct {
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Concurrency int    `json:"concurrency,omitempty" validate:"omitempty,min=1,max=30"`
}

// Period parses the dates in loc.
func (r RangeStatsRequest) Period(loc *time.Location) (models.PeriodSpec, error) {
	start, err := parseDay(r.StartDate, loc)
	if err != nil {
		return models.PeriodSpec{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := parseDay(r.EndDate, loc)
	if err != nil {
		return models.PeriodSpec{}, fmt.Errorf("end_date: %w", err)
	}
	return models.RangePeriod(start, end), nil
}

// PeriodQuery selects a period from query parameters: either year+month or start+end.
type PeriodQuery struct {
	Year      int    `form:"year"`
	Month     int    `form:"month"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// Period resolves the query, preferring an explicit date range.
func (q PeriodQuery) Period(loc *time.Location) (models.PeriodSpec, error) {
	if q.StartDate != "" || q.EndDate != "" {
		return RangeStatsRequest{StartDate: q.StartDate, EndDate: q.EndDate}.Period(loc)
	}
	if q.Year == 0 || q.Month == 0 {
		return models.PeriodSpec{}, fmt.Errorf("either year and month or start_date and end_date are required")
	}
	return models.MonthlyPeriod(q.Year, q.Month), nil
}

// ExportQuery captures GET /stats/absences/export parameters.
type ExportQuery struct {
	PeriodQuery
	Format string `form:"format"`
}

// AdminRecomputeRequest re-runs statistics for a stored teacher account.
type AdminRecomputeRequest struct {
	Year        int    `json:"year,omitempty" validate:"omitempty,min=2000,max=2100"`
	Month       int    `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	StartDate   string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Concurrency int    `json:"concurrency,omitempty" validate:"omitempty,min=1,max=30"`
}

// Period resolves the request like PeriodQuery.
func (r AdminRecomputeRequest) Period(loc *time.Location) (models.PeriodSpec, error) {
	return PeriodQuery{Year: r.Year, Month: r.Month, StartDate: r.StartDate, EndDate: r.EndDate}.Period(loc)
}

// SessionResponse is returned when a teacher session is captured.
type SessionResponse struct {
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Visitors   int64     `json:"visitors"`
	CapturedAt time.Time `json:"captured_at"`
}

// StatsListQuery captures GET /admin/stats parameters.
type StatsListQuery struct {
	Search string `form:"search"`
	Kind   string `form:"kind"`
	Sort   string `form:"sort"`
	Order  string `form:"order"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// Filter converts the query into a repository filter.
func (q StatsListQuery) Filter() models.StatsRecordFilter {
	filter := models.StatsRecordFilter{
		Search:    strings.TrimSpace(q.Search),
		Page:      q.Page,
		PageSize:  q.Limit,
		SortBy:    q.Sort,
		SortOrder: q.Order,
	}
	if kind := models.StatsRecordKind(strings.TrimSpace(q.Kind)); kind != "" {
		filter.Kind = &kind
	}
	return filter
}

// AccountListQuery captures GET /admin/teachers parameters.
type AccountListQuery struct {
	Search string `form:"search"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), loc)
}
