package models

import (
	"fmt"
	"strings"
	"time"
)

// Bar is one timestamped record of a time series. The fields usually carry
// OHLCV-style numbers (open, high, low, close, volume, optionally
// adjusted_close, dividend_amount, split_coefficient) but any normalized
// field set is allowed.
type Bar struct {
	Timestamp time.Time
	Fields    *Record
}

// Number returns the numeric field matching name (case-insensitive).
func (b Bar) Number(name string) (float64, bool) {
	v, ok := b.Fields.Lookup(name)
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Number, true
}

// Series is an ordered sequence of bars with unique timestamps.
//
// The upstream wire order is newest-first, but nothing here enforces a
// direction: builders preserve input order and consumers that need a specific
// direction must check or sort explicitly.
type Series []Bar

// Latest returns the maximum timestamp in the series regardless of order.
// The second return is false for an empty series.
func (s Series) Latest() (time.Time, bool) {
	if len(s) == 0 {
		return time.Time{}, false
	}
	max := s[0].Timestamp
	for _, b := range s[1:] {
		if b.Timestamp.After(max) {
			max = b.Timestamp
		}
	}
	return max, true
}

// Ascending reports whether the series runs oldest-first. A series with fewer
// than two bars counts as ascending.
func (s Series) Ascending() bool {
	if len(s) < 2 {
		return true
	}
	return s[0].Timestamp.Before(s[len(s)-1].Timestamp)
}

// Period is a synthetic aggregation granularity computed client-side;
// the upstream API does not serve these directly.
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// ParsePeriod validates a period string.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (want week|month|quarter|year)", s)
	}
}

// Interval is a query granularity understood by the upstream API.
type Interval string

const (
	Interval1Min    Interval = "1min"
	Interval5Min    Interval = "5min"
	Interval15Min   Interval = "15min"
	Interval30Min   Interval = "30min"
	Interval60Min   Interval = "60min"
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// ParseInterval validates an interval string.
func ParseInterval(s string) (Interval, error) {
	switch i := Interval(strings.ToLower(strings.TrimSpace(s))); i {
	case Interval1Min, Interval5Min, Interval15Min, Interval30Min, Interval60Min,
		IntervalDaily, IntervalWeekly, IntervalMonthly:
		return i, nil
	default:
		return "", fmt.Errorf("unknown interval %q", s)
	}
}

// Intraday reports whether the interval is sub-daily. Intraday requests must
// be split into bounded monthly slice windows; daily and coarser intervals
// are served by a single unparameterized query.
func (i Interval) Intraday() bool {
	switch i {
	case Interval1Min, Interval5Min, Interval15Min, Interval30Min, Interval60Min:
		return true
	default:
		return false
	}
}
