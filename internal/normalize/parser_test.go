package normalize

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/guttosm/avpulse/internal/domain/models"
)

const dailyPayload = `{
	"Meta Data": {
		"1. Information": "Daily Time Series with Splits and Dividend Events",
		"2. Symbol": "IBM",
		"3. Last Refreshed": "2021-07-29",
		"5. Time Zone": "US/Eastern"
	},
	"Time Series (Daily)": {
		"2021-07-29": {
			"1. open": "141.39",
			"2. high": "141.84",
			"3. low": "140.79",
			"4. close": "141.93",
			"5. adjusted close": "141.93",
			"6. volume": "3241472"
		},
		"2021-07-28": {
			"1. open": "142.70",
			"2. high": "143.10",
			"3. low": "141.50",
			"4. close": "141.77",
			"5. adjusted close": "141.77",
			"6. volume": "2861086"
		}
	}
}`

func TestDecodeJSON_PreservesKeyOrder(t *testing.T) {
	raw, err := DecodeJSON(strings.NewReader(dailyPayload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := raw.(*RawMap)
	if !ok {
		t.Fatalf("decoded %T, want *RawMap", raw)
	}
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "MetaData" || keys[1] != "TimeSeries_Daily_" {
		t.Fatalf("unexpected keys %v", keys)
	}

	inner, _ := m.Get("TimeSeries_Daily_")
	series := inner.(*RawMap)
	got := series.Keys()
	if len(got) != 2 || got[0] != "x2021_07_29" || got[1] != "x2021_07_28" {
		t.Fatalf("series keys out of order: %v", got)
	}
}

func TestParseResponse_DailyPayload(t *testing.T) {
	raw, err := DecodeJSON(strings.NewReader(dailyPayload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	meta, ok := rec.Get("MetaData")
	if !ok || meta.Kind != models.KindRecord {
		t.Fatalf("missing MetaData record, got %+v", meta)
	}
	if v, _ := meta.Record.Get("Symbol"); v.Text != "IBM" {
		t.Fatalf("symbol = %+v", v)
	}

	ts, ok := rec.Get("TimeSeries")
	if !ok || ts.Kind != models.KindSeries {
		t.Fatalf("missing TimeSeries, got %+v", ts)
	}
	if len(ts.Series) != 2 {
		t.Fatalf("series length = %d, want 2", len(ts.Series))
	}
	if open, ok := ts.Series[0].Number("open"); !ok || open != 141.39 {
		t.Fatalf("first open = %v (%v)", open, ok)
	}
}

// every output key must be free of numeral prefixes and trailing
// underscores, and series wrappers must collapse to exactly "TimeSeries"
func TestParseResponse_CanonicalKeyShape(t *testing.T) {
	raw, err := DecodeJSON(strings.NewReader(dailyPayload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	leading := regexp.MustCompile(`^[^0-9]*[0-9]+_[^0-9]`)
	var walk func(r *models.Record)
	walk = func(r *models.Record) {
		for _, name := range r.Names() {
			if leading.MatchString(name) {
				t.Fatalf("key %q still carries a numeral prefix", name)
			}
			if strings.HasSuffix(name, "_") {
				t.Fatalf("key %q still carries a trailing underscore", name)
			}
			if strings.HasPrefix(name, "TimeSeries") && name != "TimeSeries" {
				t.Fatalf("key %q not collapsed to TimeSeries", name)
			}
			if v, _ := r.Get(name); v.Kind == models.KindRecord {
				walk(v.Record)
			}
		}
	}
	walk(rec)
}

func TestParseResponse_ErrorEnvelope(t *testing.T) {
	payload := `{"Error Message": "Invalid API call."}`
	raw, err := DecodeJSON(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	_, err = ParseResponse(raw)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Message != "Invalid API call." {
		t.Fatalf("message = %q, want verbatim upstream text", upstream.Message)
	}
}

func TestParseResponse_SingleFieldWrapperDrills(t *testing.T) {
	payload := `{"Global Quote": {"01. symbol": "IBM", "05. price": "141.93", "10. change percent": "0.3275%"}}`
	raw, err := DecodeJSON(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rec, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if v, ok := rec.Get("Symbol"); !ok || v.Text != "IBM" {
		t.Fatalf("Symbol = %+v (%v)", v, ok)
	}
	if v, ok := rec.Get("Price"); !ok || v.Kind != models.KindNumber || v.Number != 141.93 {
		t.Fatalf("Price = %+v (%v)", v, ok)
	}
	if v, ok := rec.Get("ChangePercent"); !ok || v.Kind != models.KindNumber || v.Number != 0.3275 {
		t.Fatalf("ChangePercent = %+v (%v)", v, ok)
	}
}

func TestParseResponse_EmptyAndNonMap(t *testing.T) {
	cases := []struct {
		name string
		raw  any
	}{
		{name: "nil", raw: nil},
		{name: "empty map", raw: NewRawMap()},
		{name: "bare number", raw: float64(4)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := ParseResponse(tc.raw)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if rec.Len() != 0 {
				t.Fatalf("expected empty record, got %v", rec.Names())
			}
		})
	}
}
