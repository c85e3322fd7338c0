package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-stats-api/internal/dto"
	"github.com/noah-isme/teacher-stats-api/internal/middleware"
	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/internal/service"
	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
	"github.com/noah-isme/teacher-stats-api/pkg/export"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type statsServiceMock struct {
	report  *models.StatisticsReport
	hit     bool
	err     error
	token   string
	spec    models.PeriodSpec
	opts    service.ComputeOptions
	session *dto.SessionResponse
}

func (m *statsServiceMock) StartSession(_ context.Context, token string) (*dto.SessionResponse, error) {
	m.token = token
	return m.session, m.err
}

func (m *statsServiceMock) Compute(_ context.Context, token string, spec models.PeriodSpec, opts service.ComputeOptions) (*models.StatisticsReport, bool, error) {
	m.token, m.spec, m.opts = token, spec, opts
	if m.err != nil {
		return nil, false, m.err
	}
	return m.report, m.hit, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

var ict = time.FixedZone("ICT", 7*3600)

func statsReport() *models.StatisticsReport {
	return &models.StatisticsReport{
		StatisticsResult: models.NewStatisticsResult(10, 1.5, 50000, []models.AbsenceEvent{{StudentName: "A", FromDate: "2025-01-02T09:00:00.000Z", ClassName: "K1"}}),
		Period:           models.MonthlyPeriod(2025, 1),
	}
}

func TestStatsHandlerMonthly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statsServiceMock{report: statsReport(), hit: true}
	handler := NewStatsHandler(mockSvc, nil, nil, ict)

	payload, _ := json.Marshal(dto.MonthlyStatsRequest{Year: 2025, Month: 1, Concurrency: 8})
	c, w := newGinContext(http.MethodPost, "/stats/monthly?refresh=true", payload)
	c.Set(middleware.ContextUpstreamTokenKey, "a.b.c")

	handler.Monthly(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var report models.StatisticsReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 425000.0, report.TotalMoney)
	assert.Equal(t, "a.b.c", mockSvc.token)
	assert.True(t, mockSvc.opts.Refresh)
	assert.Equal(t, 8, mockSvc.opts.Concurrency)
	assert.Equal(t, models.MonthlyPeriod(2025, 1), mockSvc.spec)
}

func TestStatsHandlerMonthlyValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewStatsHandler(&statsServiceMock{}, nil, nil, ict)

	c, w := newGinContext(http.MethodPost, "/stats/monthly", []byte(`{"year":2025,"month":13}`))
	handler.Monthly(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)

	c, w = newGinContext(http.MethodPost, "/stats/monthly", []byte(`not json`))
	handler.Monthly(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsHandlerRangeUsesLocalDays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statsServiceMock{report: statsReport()}
	handler := NewStatsHandler(mockSvc, nil, nil, ict)

	c, w := newGinContext(http.MethodPost, "/stats/range", []byte(`{"start_date":"2025-03-01","end_date":"2025-03-20"}`))
	c.Set(middleware.ContextUpstreamTokenKey, "a.b.c")
	handler.Range(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PeriodDateRange, mockSvc.spec.Kind)
	assert.True(t, mockSvc.spec.StartDate.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, ict)))
	assert.Equal(t, false, decodeEnvelope(t, w).Meta["cache_hit"])
}

func TestStatsHandlerMapsUpstreamErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    *appErrors.Error
		status int
	}{
		{appErrors.ErrUpstreamUnauthorized, http.StatusUnauthorized},
		{appErrors.ErrUpstreamForbidden, http.StatusForbidden},
		{appErrors.ErrUpstreamFailure, http.StatusBadGateway},
		{appErrors.ErrUpstreamTimeout, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		handler := NewStatsHandler(&statsServiceMock{err: tt.err}, nil, nil, ict)
		c, w := newGinContext(http.MethodPost, "/stats/monthly", []byte(`{"year":2025,"month":1}`))
		handler.Monthly(c)

		assert.Equal(t, tt.status, w.Code)
		assert.Equal(t, tt.err.Code, decodeEnvelope(t, w).Error.Code)
	}
}

func TestStatsHandlerSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statsServiceMock{session: &dto.SessionResponse{Email: "guru@example.com", Visitors: 3}}
	handler := NewStatsHandler(mockSvc, nil, nil, ict)

	c, w := newGinContext(http.MethodPost, "/session", nil)
	c.Set(middleware.ContextUpstreamTokenKey, "a.b.c")
	handler.Session(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a.b.c", mockSvc.token)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), "guru@example.com")
}

func TestStatsHandlerExportAbsences(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &statsServiceMock{report: statsReport()}
	handler := NewStatsHandler(mockSvc, service.NewExportService(nil, nil, ict), nil, ict)

	c, w := newGinContext(http.MethodGet, "/stats/absences/export?format=csv&year=2025&month=1", nil)
	c.Set(middleware.ContextUpstreamTokenKey, "a.b.c")
	handler.ExportAbsences(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV.ContentType(), w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "absences_1_2025.csv")
	assert.Contains(t, w.Body.String(), "K1,A")

	c, w = newGinContext(http.MethodGet, "/stats/absences/export?format=xlsx&year=2025&month=1", nil)
	handler.ExportAbsences(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/stats/absences/export", nil)
	handler.ExportAbsences(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
