package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/guttosm/avpulse/internal/domain/models"
)

// numeralPrefix matches the artificial prefix the serialization layer glues
// onto numeral-leading field names ("1. open" arrives as "x1_Open"). The
// trailing non-digit requirement keeps genuine date/time fields intact:
// "x2021_07_29" has a digit after the underscore and never matches.
var numeralPrefix = regexp.MustCompile(`^[^0-9]*[0-9]+_([^0-9])`)

// NormalizeName canonicalizes one identifier-safe field name.
//
// Steps, in order:
//  1. Strip the numeral prefix (see numeralPrefix).
//  2. Strip a single trailing underscore (appended by the serialization
//     layer when a name collides with a reserved word).
//  3. Collapse any name beginning with "TimeSeries" down to exactly
//     "TimeSeries"; the suffix only repeats the interval the caller already
//     requested.
//
// Already-canonical names are fixed points, so applying NormalizeName twice
// is the same as applying it once.
func NormalizeName(name string) string {
	name = numeralPrefix.ReplaceAllString(name, "$1")
	if strings.HasSuffix(name, "_") {
		name = name[:len(name)-1]
	}
	if len(name) >= len("TimeSeries") && strings.EqualFold(name[:len("TimeSeries")], "TimeSeries") {
		name = "TimeSeries"
	}
	return name
}

// NormalizeValue coerces one textual field value into a typed value.
//
// A single trailing '%' is stripped, then a numeric parse is attempted.
// Values that do not parse pass through as text; the upstream mixes numbers
// and labels freely and an unparseable cell is data, not an error.
func NormalizeValue(raw string) models.Value {
	s := strings.TrimSuffix(raw, "%")
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return models.NumberValue(f)
	}
	return models.TextValue(s)
}

// sanitizeKey transliterates a raw payload key into the identifier-safe form
// the rest of the pipeline operates on: whitespace is removed with the
// following letter upper-cased, every other non-alphanumeric byte becomes an
// underscore, and a leading digit gets an "x" guard prefix.
//
// This reproduces the naming constraints of the serialization layer, so
// "2021-07-29" becomes the 11-char "x2021_07_29" and
// "2021-07-29 09:30:00" the 19-char "x2021_07_2909_30_00" that the series
// builder slices positionally. The function is idempotent on already-safe
// keys.
func sanitizeKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	upperNext := false
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			upperNext = true
		case r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			if upperNext {
				r = unicode.ToUpper(r)
				upperNext = false
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			upperNext = false
		}
	}
	s := b.String()
	if s == "" {
		return s
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "x" + s
	}
	return s
}
