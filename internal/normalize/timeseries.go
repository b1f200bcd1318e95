package normalize

import (
	"fmt"
	"strconv"
	"time"

	"github.com/guttosm/avpulse/internal/domain/models"
)

// Identifier-safe series key shapes, sliced positionally:
//
//	date only:     x2021_07_29          (11 bytes)
//	date and time: x2021_07_2909_30_00  (19 bytes)
//
// The key is a transliteration of a date/time, not a standard date text form,
// so it is reversed by position rather than by generic date parsing.
const (
	dateKeyLen     = 11
	dateTimeKeyLen = 19
)

// MalformedTimestampError reports a series key that matches neither known
// shape. The upstream never legitimately produces such keys; failing fast
// beats silently mis-slicing one.
type MalformedTimestampError struct {
	Key string
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("malformed time-series key %q", e.Key)
}

// BuildTimeSeries reconstructs an ordered series from a map whose keys are
// identifier-safe timestamps and whose values are per-timestamp field maps.
//
// Output order matches input key order. The upstream convention is
// newest-first, but that is the payload's choice, not a guarantee made here;
// callers needing a direction must check or sort.
func BuildTimeSeries(m *RawMap) (models.Series, error) {
	series := make(models.Series, 0, m.Len())
	for _, key := range m.Keys() {
		ts, err := parseSeriesKey(key)
		if err != nil {
			return nil, err
		}

		raw, _ := m.Get(key)
		sub, ok := raw.(*RawMap)
		if !ok {
			return nil, fmt.Errorf("series key %q: value is %T, want object", key, raw)
		}

		fields := models.NewRecord()
		for _, fk := range sub.Keys() {
			fraw, _ := sub.Get(fk)
			v, err := normalizeRaw(fraw)
			if err != nil {
				return nil, fmt.Errorf("series key %q: field %q: %w", key, fk, err)
			}
			fields.Set(NormalizeName(fk), v)
		}

		series = append(series, models.Bar{Timestamp: ts, Fields: fields})
	}
	return series, nil
}

// parseSeriesKey slices one identifier-safe key into a timestamp.
func parseSeriesKey(key string) (time.Time, error) {
	switch len(key) {
	case dateKeyLen:
		y, okY := keyDigits(key, 1, 5)
		mo, okM := keyDigits(key, 6, 8)
		d, okD := keyDigits(key, 9, 11)
		if !okY || !okM || !okD || key[5] != '_' || key[8] != '_' ||
			mo < 1 || mo > 12 || d < 1 || d > 31 {
			return time.Time{}, &MalformedTimestampError{Key: key}
		}
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), nil

	case dateTimeKeyLen:
		y, okY := keyDigits(key, 1, 5)
		mo, okM := keyDigits(key, 6, 8)
		d, okD := keyDigits(key, 9, 11)
		h, okH := keyDigits(key, 11, 13)
		mi, okMi := keyDigits(key, 14, 16)
		s, okS := keyDigits(key, 17, 19)
		if !okY || !okM || !okD || !okH || !okMi || !okS ||
			key[5] != '_' || key[8] != '_' || key[13] != '_' || key[16] != '_' ||
			mo < 1 || mo > 12 || d < 1 || d > 31 || h > 23 || mi > 59 || s > 59 {
			return time.Time{}, &MalformedTimestampError{Key: key}
		}
		return time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC), nil

	default:
		return time.Time{}, &MalformedTimestampError{Key: key}
	}
}

// keyDigits parses key[from:to] as a base-10 number, rejecting non-digits.
func keyDigits(key string, from, to int) (int, bool) {
	s := key[from:to]
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
