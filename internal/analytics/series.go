package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/pkg/enums"
)

// Sample is one dated contribution to a series, an order's total or a bare
// count of one for signup and order-volume series.
type Sample struct {
	Date  time.Time
	Value decimal.Decimal
}

// Bucket is one chart bar: how many samples landed in it and what they sum to.
type Bucket struct {
	Label string          `json:"label"`
	Count int             `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// BucketSeries groups the samples falling inside the range into the period's
// chart buckets. Week, month, and year series are zero-filled so charts keep
// a stable shape; quarter series drop empty buckets.
func BucketSeries(samples []Sample, period enums.ReportPeriod, r Range) []Bucket {
	switch period {
	case enums.ReportPeriodMonth:
		return monthSeries(samples, r)
	case enums.ReportPeriodQuarter:
		return quarterSeries(samples, r)
	case enums.ReportPeriodYear:
		return yearSeries(samples, r)
	default:
		return weekSeries(samples, r)
	}
}

func weekSeries(samples []Sample, r Range) []Bucket {
	buckets := make([]Bucket, 7)
	for i := range buckets {
		buckets[i] = Bucket{Label: weekdayLabels[i], Sum: decimal.Zero}
	}
	for _, s := range samples {
		if !r.Contains(s.Date) {
			continue
		}
		idx := int(s.Date.UTC().Weekday())
		buckets[idx].Count++
		buckets[idx].Sum = buckets[idx].Sum.Add(s.Value)
	}
	return buckets
}

func monthSeries(samples []Sample, r Range) []Bucket {
	days := r.End.Day()
	buckets := make([]Bucket, days)
	for i := range buckets {
		buckets[i] = Bucket{Label: fmt.Sprintf("Day %d", i+1), Sum: decimal.Zero}
	}
	for _, s := range samples {
		if !r.Contains(s.Date) {
			continue
		}
		idx := s.Date.UTC().Day() - 1
		if idx < 0 || idx >= days {
			continue
		}
		buckets[idx].Count++
		buckets[idx].Sum = buckets[idx].Sum.Add(s.Value)
	}
	return buckets
}

// quarterSeries buckets each sample into a week-of-month slot derived from
// the day of month and the weekday index. Slots no sample landed in are
// dropped rather than zero-filled.
func quarterSeries(samples []Sample, r Range) []Bucket {
	type slot struct {
		month time.Month
		week  int
	}
	sums := map[slot]*Bucket{}
	for _, s := range samples {
		if !r.Contains(s.Date) {
			continue
		}
		day := s.Date.UTC()
		key := slot{
			month: day.Month(),
			week:  (day.Day() + int(day.Weekday())) / 7,
		}
		b, ok := sums[key]
		if !ok {
			b = &Bucket{
				Label: fmt.Sprintf("%s W%d", day.Month().String()[:3], key.week+1),
				Sum:   decimal.Zero,
			}
			sums[key] = b
		}
		b.Count++
		b.Sum = b.Sum.Add(s.Value)
	}

	var out []Bucket
	for cursor := r.Start; !cursor.After(r.End); cursor = cursor.AddDate(0, 1, 0) {
		for week := 0; week <= 5; week++ {
			if b, ok := sums[slot{month: cursor.Month(), week: week}]; ok {
				out = append(out, *b)
			}
		}
	}
	return out
}

func yearSeries(samples []Sample, r Range) []Bucket {
	buckets := make([]Bucket, 12)
	for i := range buckets {
		buckets[i] = Bucket{Label: time.Month(i + 1).String()[:3], Sum: decimal.Zero}
	}
	for _, s := range samples {
		if !r.Contains(s.Date) {
			continue
		}
		idx := int(s.Date.UTC().Month()) - 1
		buckets[idx].Count++
		buckets[idx].Sum = buckets[idx].Sum.Add(s.Value)
	}
	return buckets
}

var hundred = decimal.NewFromInt(100)

// PercentChange is the period-over-period delta, rounded to one decimal
// place. A zero previous value reads as a 100 percent increase.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return hundred
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(1)
}
