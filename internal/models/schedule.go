package models

import (
	"bytes"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ClassStatusFinished marks a shift eligible for scoring.
const ClassStatusFinished = "FINISHED"

// FlexibleID accepts identifiers the schedule platform emits either as JSON strings or numbers.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexibleID(n.String())
	return nil
}

// String implements fmt.Stringer.
func (id FlexibleID) String() string {
	return string(id)
}

// Product is a schedulable offering returned by the products listing.
type Product struct {
	ID   FlexibleID `json:"id"`
	Name string     `json:"name,omitempty"`
}

// ClassShift is one scheduled class occurrence.
type ClassShift struct {
	ClassSessionID FlexibleID `json:"classSessionId"`
	ClassStatus    string     `json:"classStatus"`
	ClassName      string     `json:"className"`
	FromDate       string     `json:"fromDate"`
	ToDate         string     `json:"toDate,omitempty"`
}

// Finished reports whether the occurrence has been completed upstream.
func (s ClassShift) Finished() bool {
	return s.ClassStatus == ClassStatusFinished
}

// ParticipationDetail is one student's row within a lesson diary.
type ParticipationDetail struct {
	StudentName    string   `json:"studentName"`
	IsParticipated *bool    `json:"isParticipated"`
	Rating         *float64 `json:"rating,omitempty"`
	Comment        string   `json:"comment,omitempty"`
}

// Absent is true only when the diary explicitly records non-participation.
func (d ParticipationDetail) Absent() bool {
	return d.IsParticipated != nil && !*d.IsParticipated
}

// DiaryRecord is the lesson diary of one class occurrence.
type DiaryRecord struct {
	Details     []ParticipationDetail  `json:"details"`
	GeneralInfo map[string]interface{} `json:"generalInfo,omitempty"`
}

// ParseInstant parses upstream timestamps. ok is false when the value is not a recognised instant.
func ParseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z0700", "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
