package service

import (
	"strings"

	"github.com/noah-isme/teacher-stats-api/internal/models"
)

const (
	absencePenalty  = 0.5
	pairedAbsences  = 2
	combinedNameSep = " + "
)

// ClassScore is the outcome of scoring one diary.
type ClassScore struct {
	ScoreDelta float64
	Absences   []models.AbsenceEvent
}

// ClassContext identifies the class occurrence being scored.
type ClassContext struct {
	FromDate  string
	ClassName string
}

// ScoreClass applies the participation rule to one diary.
//
// In a shared class (more than one student) only exactly two absences are penalised, as a single
// combined event. In a one-on-one class every absence costs half a class.
func ScoreClass(details []models.ParticipationDetail, class ClassContext) ClassScore {
	score := ClassScore{Absences: []models.AbsenceEvent{}}

	if len(details) > 1 {
		absent := make([]string, 0, len(details))
		for _, detail := range details {
			if detail.Absent() {
				absent = append(absent, detail.StudentName)
			}
		}
		if len(absent) == pairedAbsences {
			score.ScoreDelta = absencePenalty
			score.Absences = append(score.Absences, models.AbsenceEvent{
				StudentName: strings.Join(absent, combinedNameSep),
				FromDate:    class.FromDate,
				ClassName:   class.ClassName,
			})
		}
		return score
	}

	for _, detail := range details {
		if !detail.Absent() {
			continue
		}
		score.ScoreDelta += absencePenalty
		score.Absences = append(score.Absences, models.AbsenceEvent{
			StudentName: detail.StudentName,
			FromDate:    class.FromDate,
			ClassName:   class.ClassName,
		})
	}
	return score
}

// AbsenceLedger accumulates scores and absence events across one aggregation run.
// Events sharing a class name and occurrence instant are recorded once; their score still counts.
type AbsenceLedger struct {
	score  float64
	seen   map[string]struct{}
	events []models.AbsenceEvent
}

// NewAbsenceLedger returns an empty ledger.
func NewAbsenceLedger() *AbsenceLedger {
	return &AbsenceLedger{seen: make(map[string]struct{}), events: []models.AbsenceEvent{}}
}

// Add folds one class score into the ledger and reports how many events were suppressed.
func (l *AbsenceLedger) Add(score ClassScore) int {
	l.score += score.ScoreDelta
	suppressed := 0
	for _, event := range score.Absences {
		key := event.DedupKey()
		if _, dup := l.seen[key]; dup {
			suppressed++
			continue
		}
		l.seen[key] = struct{}{}
		l.events = append(l.events, event)
	}
	return suppressed
}

// Score returns the accumulated participation score.
func (l *AbsenceLedger) Score() float64 {
	return l.score
}

// Events returns the recorded events in insertion order.
func (l *AbsenceLedger) Events() []models.AbsenceEvent {
	out := make([]models.AbsenceEvent, len(l.events))
	copy(out, l.events)
	return out
}
