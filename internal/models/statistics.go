package models

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// PeriodKind distinguishes monthly requests from custom date ranges.
type PeriodKind string

const (
	PeriodMonthly   PeriodKind = "monthly"
	PeriodDateRange PeriodKind = "date_range"
)

// PeriodSpec is either {Year, Month} or {StartDate, EndDate}.
type PeriodSpec struct {
	Kind      PeriodKind `json:"type"`
	Year      int        `json:"year,omitempty"`
	Month     int        `json:"month,omitempty"`
	StartDate time.Time  `json:"startDate,omitempty"`
	EndDate   time.Time  `json:"endDate,omitempty"`
}

// MonthlyPeriod builds a calendar month period.
func MonthlyPeriod(year, month int) PeriodSpec {
	return PeriodSpec{Kind: PeriodMonthly, Year: year, Month: month}
}

// RangePeriod builds a custom date range period.
func RangePeriod(start, end time.Time) PeriodSpec {
	return PeriodSpec{Kind: PeriodDateRange, StartDate: start, EndDate: end}
}

// Key identifies the period in cache and persistence keys.
func (p PeriodSpec) Key() string {
	switch p.Kind {
	case PeriodMonthly:
		return fmt.Sprintf("%d_%d", p.Month, p.Year)
	case PeriodDateRange:
		return fmt.Sprintf("%s_%s_range", p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly))
	default:
		return "unknown"
	}
}

// AbsenceEvent is one penalised absence, possibly naming two students.
type AbsenceEvent struct {
	StudentName string `json:"studentName"`
	FromDate    string `json:"fromDate"`
	ClassName   string `json:"className"`
}

// DedupKey is the (className, fromDate) identity used to suppress repeats.
func (e AbsenceEvent) DedupKey() string {
	if t, ok := ParseInstant(e.FromDate); ok {
		return e.ClassName + "\x00" + strconv.FormatInt(t.UnixMilli(), 10)
	}
	return e.ClassName + "\x00" + e.FromDate
}

// SortAbsencesNewestFirst orders events by fromDate descending; unparsable dates sink to the end.
func SortAbsencesNewestFirst(events []AbsenceEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, okA := ParseInstant(events[i].FromDate)
		b, okB := ParseInstant(events[j].FromDate)
		switch {
		case okA && okB:
			return a.After(b)
		case okA:
			return true
		default:
			return false
		}
	})
}

// StatisticsResult is the payroll outcome of one aggregation run.
type StatisticsResult struct {
	TotalFinishedCount      int            `json:"totalFinishedCount"`
	TotalParticipationScore float64        `json:"totalParticipationScore"`
	TotalClasses            float64        `json:"totalClasses"`
	TotalMoney              float64        `json:"totalMoney"`
	AbsentStudents          []AbsenceEvent `json:"absentStudents"`
}

// NewStatisticsResult derives the class and money totals from the counted inputs.
func NewStatisticsResult(finished int, participationScore, unitRate float64, absences []AbsenceEvent) StatisticsResult {
	if absences == nil {
		absences = []AbsenceEvent{}
	}
	classes := float64(finished) - participationScore
	return StatisticsResult{
		TotalFinishedCount:      finished,
		TotalParticipationScore: participationScore,
		TotalClasses:            classes,
		TotalMoney:              classes * unitRate,
		AbsentStudents:          absences,
	}
}

// RunDiagnostics describes how much of the diary fan-out succeeded.
type RunDiagnostics struct {
	Windows          int   `json:"windows"`
	ProcessedDiaries int   `json:"processedDiaries"`
	SkippedDiaries   int   `json:"skippedDiaries"`
	TotalDiaries     int   `json:"totalDiaries"`
	DurationMs       int64 `json:"durationMs"`
}

// StatisticsReport bundles the result with its period and run diagnostics.
type StatisticsReport struct {
	StatisticsResult
	Period      PeriodSpec     `json:"period"`
	UnitRate    float64        `json:"unitRate"`
	Diagnostics RunDiagnostics `json:"diagnostics"`
	GeneratedAt time.Time      `json:"generatedAt"`
}
