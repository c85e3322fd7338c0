package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// StatsRecordKind tags how a record was produced.
type StatsRecordKind string

const (
	StatsKindMonthly   StatsRecordKind = "monthly"
	StatsKindDateRange StatsRecordKind = "date_range"
	StatsKindAdmin     StatsRecordKind = "admin"
)

// AbsenceList is stored as a JSONB column.
type AbsenceList []AbsenceEvent

// Value implements driver.Valuer.
func (l AbsenceList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *AbsenceList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = AbsenceList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("absence list: unsupported type %T", src)
	}
	var events []AbsenceEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return err
	}
	*l = events
	return nil
}

// StatsRecord is one persisted statistics computation.
type StatsRecord struct {
	ID                      string          `db:"id" json:"id"`
	Email                   string          `db:"email" json:"email"`
	Phone                   string          `db:"phone" json:"phone"`
	Kind                    StatsRecordKind `db:"kind" json:"kind"`
	PeriodKey               string          `db:"period_key" json:"period_key"`
	Year                    *int            `db:"year" json:"year,omitempty"`
	Month                   *int            `db:"month" json:"month,omitempty"`
	StartDate               *time.Time      `db:"start_date" json:"start_date,omitempty"`
	EndDate                 *time.Time      `db:"end_date" json:"end_date,omitempty"`
	TotalFinishedCount      int             `db:"total_finished_count" json:"totalFinishedCount"`
	TotalParticipationScore float64         `db:"total_participation_score" json:"totalParticipationScore"`
	TotalClasses            float64         `db:"total_classes" json:"totalClasses"`
	TotalMoney              float64         `db:"total_money" json:"totalMoney"`
	AbsentStudents          AbsenceList     `db:"absent_students" json:"absentStudents"`
	ProcessedDiaries        int             `db:"processed_diaries" json:"processedDiaries"`
	SkippedDiaries          int             `db:"skipped_diaries" json:"skippedDiaries"`
	TotalDiaries            int             `db:"total_diaries" json:"totalDiaries"`
	RequestedBy             *string         `db:"requested_by" json:"requested_by,omitempty"`
	CreatedAt               time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time       `db:"updated_at" json:"updated_at"`
}

// RecordKey is the natural key of a record: one row per teacher, kind and period.
func (r StatsRecord) RecordKey() string {
	return fmt.Sprintf("%s_%s_%s", r.Email, r.Kind, r.PeriodKey)
}

// NewStatsRecord flattens a report into its persisted shape.
func NewStatsRecord(email, phone string, kind StatsRecordKind, report *StatisticsReport) StatsRecord {
	record := StatsRecord{
		Email:                   email,
		Phone:                   phone,
		Kind:                    kind,
		PeriodKey:               report.Period.Key(),
		TotalFinishedCount:      report.TotalFinishedCount,
		TotalParticipationScore: report.TotalParticipationScore,
		TotalClasses:            report.TotalClasses,
		TotalMoney:              report.TotalMoney,
		AbsentStudents:          AbsenceList(report.AbsentStudents),
		ProcessedDiaries:        report.Diagnostics.ProcessedDiaries,
		SkippedDiaries:          report.Diagnostics.SkippedDiaries,
		TotalDiaries:            report.Diagnostics.TotalDiaries,
	}
	switch report.Period.Kind {
	case PeriodMonthly:
		year, month := report.Period.Year, report.Period.Month
		record.Year, record.Month = &year, &month
	case PeriodDateRange:
		start, end := report.Period.StartDate, report.Period.EndDate
		record.StartDate, record.EndDate = &start, &end
	}
	return record
}

// StatsRecordFilter captures browsing criteria for the stats log.
type StatsRecordFilter struct {
	Search    string
	Kind      *StatsRecordKind
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
