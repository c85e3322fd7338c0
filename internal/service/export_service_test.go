package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/pkg/export"
)

func rosterReport() *models.StatisticsReport {
	return &models.StatisticsReport{
		StatisticsResult: models.NewStatisticsResult(3, 1, 50000, []models.AbsenceEvent{
			{StudentName: "B + C", FromDate: "2025-01-17T09:00:00.000Z", ClassName: "K3"},
			{StudentName: "A", FromDate: "not-a-date", ClassName: "K1"},
		}),
		Period: models.MonthlyPeriod(2025, 1),
	}
}

func TestAbsenceRosterCSV(t *testing.T) {
	svc := NewExportService(nil, nil, time.FixedZone("ICT", 7*3600))

	file, err := svc.AbsenceRoster(rosterReport(), export.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "absences_1_2025.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	body := string(file.Content)
	assert.Contains(t, body, "No,Class,Student,Date")
	assert.Contains(t, body, "1,K3,B + C,2025-01-17 16:00")
	assert.Contains(t, body, "2,K1,A,not-a-date")
}

func TestAbsenceRosterPDF(t *testing.T) {
	svc := NewExportService(nil, nil, time.UTC)

	file, err := svc.AbsenceRoster(rosterReport(), export.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "absences_1_2025.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestAbsenceRosterEmpty(t *testing.T) {
	report := &models.StatisticsReport{StatisticsResult: models.NewStatisticsResult(0, 0, 50000, nil), Period: models.MonthlyPeriod(2025, 2)}

	file, err := NewExportService(nil, nil, nil).AbsenceRoster(report, "")
	require.NoError(t, err)
	assert.Equal(t, "absences_2_2025.csv", file.Filename)
}
