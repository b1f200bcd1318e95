// Package series holds the pure post-fetch stages of the pipeline: boundary
// filtering and synthetic-period aggregation. Everything here is a
// transformation over locally-owned inputs and is safe to call concurrently
// on disjoint series.
package series

import (
	"time"

	"github.com/guttosm/avpulse/internal/domain/models"
)

// FilterRange drops every bar strictly before start and strictly after the
// adjusted end bound. A nil bound disables filtering on that side, and an
// empty series passes through untouched.
//
// End adjustment: when the end bound falls exactly on a calendar-day boundary
// the caller almost certainly passed a bare date, so the bound is extended to
// the last representable instant of that day and the whole end day is kept.
func FilterRange(s models.Series, start, end *time.Time) models.Series {
	if start == nil && end == nil {
		return s
	}

	var adjEnd time.Time
	if end != nil {
		adjEnd = adjustEnd(*end)
	}

	out := make(models.Series, 0, len(s))
	for _, b := range s {
		if start != nil && b.Timestamp.Before(*start) {
			continue
		}
		if end != nil && b.Timestamp.After(adjEnd) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// adjustEnd extends a midnight bound to the end of that day.
func adjustEnd(end time.Time) time.Time {
	h, m, sec := end.Clock()
	if h == 0 && m == 0 && sec == 0 && end.Nanosecond() == 0 {
		return end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return end
}
