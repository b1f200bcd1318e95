package series

import (
	"strings"
	"time"

	"github.com/guttosm/avpulse/internal/domain/models"
)

// fieldRole classifies how one field folds into a period bucket.
type fieldRole int

const (
	roleLast fieldRole = iota // close, adjusted close, anything unrecognized
	roleFirst
	roleMax
	roleMin
	roleSum
)

// roleOf maps a canonical field name onto its aggregation rule. Matching is
// case- and underscore-insensitive because the JSON and CSV payload shapes
// canonicalize differently ("AdjustedClose" vs "adjusted_close").
func roleOf(name string) fieldRole {
	switch strings.ReplaceAll(strings.ToLower(name), "_", "") {
	case "open":
		return roleFirst
	case "high":
		return roleMax
	case "low":
		return roleMin
	case "volume":
		return roleSum
	default:
		return roleLast
	}
}

// Aggregate resamples a daily-or-finer series into one bar per calendar
// period, applying OHLCV rules per field: open from the chronologically
// first bar of the bucket, high = max, low = min, volume = sum, and
// everything else (close, adjusted close, dividends, splits) from the
// chronologically last bar.
//
// Each bar's bucket key is the end of its containing calendar period; a
// still-in-progress final period gets its end clamped to the latest
// timestamp present in the series so the partial bucket is still emitted.
// Bars are grouped contiguously, so bucket order mirrors input order. The
// input must already run in one consistent chronological direction; the
// aggregator does not sort.
func Aggregate(s models.Series, period models.Period) models.Series {
	if len(s) == 0 {
		return models.Series{}
	}

	latest, _ := s.Latest()

	out := models.Series{}
	var bucket models.Series
	var bucketEnd time.Time

	flush := func() {
		if len(bucket) > 0 {
			out = append(out, foldBucket(bucket, bucketEnd))
		}
		bucket = bucket[:0]
	}

	for _, b := range s {
		end := periodEnd(b.Timestamp, period)
		if end.After(latest) {
			end = latest
		}
		if len(bucket) > 0 && !end.Equal(bucketEnd) {
			flush()
		}
		bucketEnd = end
		bucket = append(bucket, b)
	}
	flush()

	return out
}

// foldBucket collapses one bucket of bars into a single bar labeled end.
func foldBucket(bucket models.Series, end time.Time) models.Bar {
	first := bucket[0]
	last := bucket[0]
	for _, b := range bucket[1:] {
		if b.Timestamp.Before(first.Timestamp) {
			first = b
		}
		if b.Timestamp.After(last.Timestamp) {
			last = b
		}
	}

	fields := models.NewRecord()
	for _, name := range bucket[0].Fields.Names() {
		switch roleOf(name) {
		case roleFirst:
			if v, ok := first.Fields.Get(name); ok {
				fields.Set(name, v)
			}
		case roleMax:
			fields.Set(name, foldNumeric(bucket, last, name, func(acc, x float64) float64 {
				if x > acc {
					return x
				}
				return acc
			}))
		case roleMin:
			fields.Set(name, foldNumeric(bucket, last, name, func(acc, x float64) float64 {
				if x < acc {
					return x
				}
				return acc
			}))
		case roleSum:
			fields.Set(name, foldNumeric(bucket, last, name, func(acc, x float64) float64 {
				return acc + x
			}))
		default:
			if v, ok := last.Fields.Get(name); ok {
				fields.Set(name, v)
			}
		}
	}

	return models.Bar{Timestamp: end, Fields: fields}
}

// foldNumeric folds the numeric values of one field across a bucket. Bars
// where the field is missing or non-numeric are skipped; if no bar carries a
// number the chronologically last raw value passes through unchanged.
func foldNumeric(bucket models.Series, last models.Bar, name string, fold func(acc, x float64) float64) models.Value {
	var acc float64
	seen := false
	for _, b := range bucket {
		v, ok := b.Fields.Get(name)
		if !ok || v.Kind != models.KindNumber {
			continue
		}
		if !seen {
			acc = v.Number
			seen = true
			continue
		}
		acc = fold(acc, v.Number)
	}
	if !seen {
		v, _ := last.Fields.Get(name)
		return v
	}
	return models.NumberValue(acc)
}

// periodEnd returns the end of the calendar period containing t, as a
// midnight date in t's location. Weeks are ISO weeks ending on Sunday.
func periodEnd(t time.Time, period models.Period) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())

	switch period {
	case models.PeriodWeek:
		wd := int(day.Weekday())
		if wd == 0 {
			wd = 7
		}
		return day.AddDate(0, 0, 7-wd)
	case models.PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, -1)
	case models.PeriodQuarter:
		qm := time.Month((int(m)-1)/3*3 + 3)
		return time.Date(y, qm, 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, -1)
	case models.PeriodYear:
		return time.Date(y, time.December, 31, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}
