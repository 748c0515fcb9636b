package enums

import "fmt"

// ReportPeriod selects the dashboard reporting window.
type ReportPeriod string

const (
	ReportPeriodWeek    ReportPeriod = "week"
	ReportPeriodMonth   ReportPeriod = "month"
	ReportPeriodQuarter ReportPeriod = "quarter"
	ReportPeriodYear    ReportPeriod = "year"
)

var validReportPeriods = []ReportPeriod{
	ReportPeriodWeek,
	ReportPeriodMonth,
	ReportPeriodQuarter,
	ReportPeriodYear,
}

// String implements fmt.Stringer.
func (r ReportPeriod) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReportPeriod.
func (r ReportPeriod) IsValid() bool {
	for _, candidate := range validReportPeriods {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReportPeriod converts raw input into a ReportPeriod.
func ParseReportPeriod(value string) (ReportPeriod, error) {
	for _, candidate := range validReportPeriods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report period %q", value)
}
