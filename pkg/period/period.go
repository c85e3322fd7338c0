// Package period splits calendar months and custom date ranges into bounded
// sub-windows accepted by the schedule platform's shift listing.
package period

import (
	"errors"
	"fmt"
	"time"
)

// WindowDays is the maximum number of calendar days covered by a single window.
const WindowDays = 7

// WireLayout is the ISO-8601 instant format expected by the shift listing.
const WireLayout = "2006-01-02T15:04:05.000Z"

const lastMillisecond = 999 * int(time.Millisecond)

// ErrInvalidPeriod reports a malformed month or an inverted range.
var ErrInvalidPeriod = errors.New("invalid period")

// Window is an inclusive [From, To] span with millisecond precision.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// FromParam renders the window start in wire format.
func (w Window) FromParam() string {
	return w.From.UTC().Format(WireLayout)
}

// ToParam renders the window end in wire format.
func (w Window) ToParam() string {
	return w.To.UTC().Format(WireLayout)
}

// String implements fmt.Stringer.
func (w Window) String() string {
	return w.FromParam() + "/" + w.ToParam()
}

// Month partitions the given calendar month using UTC day boundaries.
func Month(year, month int) ([]Window, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month)+1, 0, 23, 59, 59, lastMillisecond, time.UTC)
	return chunk(start, end), nil
}

// Range partitions [start, end] after normalising both ends to whole days in loc.
func Range(start, end time.Time, loc *time.Location) ([]Window, error) {
	from, to, err := Bounds(start, end, loc)
	if err != nil {
		return nil, err
	}
	return chunk(from, to), nil
}

// Bounds returns the day-normalised ends of a custom range.
func Bounds(start, end time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	from := StartOfDay(start.In(loc))
	to := EndOfDay(end.In(loc))
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidPeriod, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return from, to, nil
}

// Span returns the inclusive number of calendar days between start and end in loc.
func Span(start, end time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	s := start.In(loc)
	e := end.In(loc)
	a := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}

// StartOfDay truncates t to 00:00:00.000 in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay moves t to 23:59:59.999 in its own location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, lastMillisecond, t.Location())
}

// chunk walks from start in WindowDays steps. Calendar arithmetic happens in the
// location of start so local-day ranges stay on local midnights across DST.
func chunk(start, end time.Time) []Window {
	windows := make([]Window, 0, 6)
	current := start
	for !current.After(end) {
		to := EndOfDay(current.AddDate(0, 0, WindowDays-1))
		if to.After(end) {
			to = end
		}
		windows = append(windows, Window{From: current, To: to})
		current = StartOfDay(to.AddDate(0, 0, 1))
	}
	return windows
}
