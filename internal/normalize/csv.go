package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guttosm/avpulse/internal/domain/models"
)

// Timestamp layouts accepted in the first CSV column.
var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseCSV decodes a CSV payload (the shape the sliced intraday endpoint
// serves) into a series.
//
// The first header column must be the timestamp column ("time" or
// "timestamp"); remaining columns become normalized fields of each bar, with
// the usual lenient string→number coercion. Row order is preserved as
// received. An empty payload yields an empty series, not an error.
//
// Structural problems fail the whole parse: a wrong first column, a row with
// a different column count (enforced by the reader), or an unparseable
// timestamp cell.
func ParseCSV(r io.Reader) (models.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return models.Series{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	first := strings.ToLower(strings.TrimSpace(header[0]))
	if first != "time" && first != "timestamp" {
		return nil, fmt.Errorf("invalid csv header: first column is %q, want time or timestamp", header[0])
	}

	names := make([]string, len(header))
	for i := 1; i < len(header); i++ {
		names[i] = NormalizeName(sanitizeKey(strings.TrimSpace(header[i])))
	}

	series := models.Series{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line after %d: %w", line, err)
		}
		line++

		ts, err := parseCSVTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		fields := models.NewRecord()
		for i := 1; i < len(rec); i++ {
			fields.Set(names[i], NormalizeValue(strings.TrimSpace(rec[i])))
		}
		series = append(series, models.Bar{Timestamp: ts, Fields: fields})
	}
	return series, nil
}

func parseCSVTime(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	for _, layout := range csvTimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp cell %q", cell)
}
