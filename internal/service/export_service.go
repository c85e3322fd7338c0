package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered document ready to be served.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders absence rosters.
type ExportService struct {
	csv csvRenderer
	pdf pdfRenderer
	loc *time.Location
}

// NewExportService constructs an ExportService. Dates are printed in loc.
func NewExportService(csv csvRenderer, pdf pdfRenderer, loc *time.Location) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if loc == nil {
		loc = time.Local
	}
	return &ExportService{csv: csv, pdf: pdf, loc: loc}
}

var absenceHeaders = []string{"No", "Class", "Student", "Date"}

// AbsenceRoster renders the report's absent students in format.
func (s *ExportService) AbsenceRoster(report *models.StatisticsReport, format export.Format) (*ExportFile, error) {
	data := export.Dataset{
		Headers: absenceHeaders,
		Rows:    make([]map[string]string, 0, len(report.AbsentStudents)),
		Summary: []string{
			fmt.Sprintf("Period: %s", report.Period.Key()),
			fmt.Sprintf("Finished classes: %d", report.TotalFinishedCount),
			fmt.Sprintf("Participation score: %g", report.TotalParticipationScore),
			fmt.Sprintf("Effective classes: %g", report.TotalClasses),
			fmt.Sprintf("Total: %.0f", report.TotalMoney),
		},
	}
	for i, event := range report.AbsentStudents {
		data.Rows = append(data.Rows, map[string]string{
			"No":      fmt.Sprintf("%d", i+1),
			"Class":   event.ClassName,
			"Student": event.StudentName,
			"Date":    s.formatDate(event.FromDate),
		})
	}

	var (
		content []byte
		err     error
	)
	switch format {
	case export.FormatPDF:
		content, err = s.pdf.Render(data, "Absent students")
	default:
		format = export.FormatCSV
		content, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, fmt.Errorf("render absence roster: %w", err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("absences_%s.%s", report.Period.Key(), format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}

func (s *ExportService) formatDate(raw string) string {
	if t, ok := models.ParseInstant(raw); ok {
		return t.In(s.loc).Format("2006-01-02 15:04")
	}
	return raw
}
