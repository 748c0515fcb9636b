package analytics

import (
	"time"

	"github.com/angelmondragon/shopkit/pkg/enums"
)

// Range is an inclusive day span. Start and End are midnight UTC on the first
// and last day of the span.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the instant falls on a day inside the range.
func (r Range) Contains(t time.Time) bool {
	day := truncateDay(t.UTC())
	return !day.Before(r.Start) && !day.After(r.End)
}

// Previous returns the adjacent range of the same period immediately before
// this one, the comparison window for period-over-period deltas.
func (r Range) Previous(period enums.ReportPeriod) Range {
	switch period {
	case enums.ReportPeriodMonth:
		start := r.Start.AddDate(0, -1, 0)
		return Range{Start: start, End: lastDayOfMonth(start)}
	case enums.ReportPeriodQuarter:
		start := r.Start.AddDate(0, -3, 0)
		return Range{Start: start, End: lastDayOfMonth(start.AddDate(0, 2, 0))}
	case enums.ReportPeriodYear:
		return Range{Start: r.Start.AddDate(-1, 0, 0), End: r.End.AddDate(-1, 0, 0)}
	default:
		return Range{Start: r.Start.AddDate(0, 0, -7), End: r.End.AddDate(0, 0, -7)}
	}
}

// DateRange resolves a reporting window relative to now. Offset zero is the
// current window, one is the previous, and so on. An unknown period falls
// back to week.
func DateRange(now time.Time, period enums.ReportPeriod, offset int) Range {
	now = now.UTC()
	switch period {
	case enums.ReportPeriodMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -offset, 0)
		return Range{Start: first, End: lastDayOfMonth(first)}
	case enums.ReportPeriodQuarter:
		quarterMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		first := time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -3*offset, 0)
		return Range{Start: first, End: lastDayOfMonth(first.AddDate(0, 2, 0))}
	case enums.ReportPeriodYear:
		year := now.Year() - offset
		return Range{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		}
	default:
		end := truncateDay(now).AddDate(0, 0, -7*offset)
		return Range{Start: end.AddDate(0, 0, -6), End: end}
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// lastDayOfMonth relies on day zero of the following month normalizing back.
func lastDayOfMonth(firstOfMonth time.Time) time.Time {
	return time.Date(firstOfMonth.Year(), firstOfMonth.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}
