package dto

import (
	"testing"
	"time"

	"github.com/guttosm/avpulse/internal/domain/models"
)

func TestNewTimeSeriesResponse(t *testing.T) {
	ts := time.Date(2021, 7, 29, 0, 0, 0, 0, time.UTC)
	rec := models.NewRecord()
	rec.Set("Open", models.NumberValue(141.39))
	rec.Set("Close", models.NumberValue(141.93))
	rec.Set("AdjustedClose", models.NumberValue(140.11))
	rec.Set("Volume", models.NumberValue(100))
	s := models.Series{{Timestamp: ts, Fields: rec}}

	p := models.PeriodWeek
	resp := NewTimeSeriesResponse("IBM", models.IntervalDaily, &p, s)

	if resp.Symbol != "IBM" || resp.Interval != "daily" || resp.Period != "week" {
		t.Fatalf("header fields: %+v", resp)
	}
	if len(resp.Bars) != 1 {
		t.Fatalf("bars = %d, want 1", len(resp.Bars))
	}
	b := resp.Bars[0]
	if b.Open == nil || *b.Open != 141.39 {
		t.Fatalf("open = %v", b.Open)
	}
	// JSON payloads canonicalize to "AdjustedClose"; the DTO field must still
	// find it under its underscored column name
	if b.AdjustedClose == nil || *b.AdjustedClose != 140.11 {
		t.Fatalf("adjusted close = %v", b.AdjustedClose)
	}
	if b.High != nil || b.Low != nil {
		t.Fatalf("absent fields must stay nil: high=%v low=%v", b.High, b.Low)
	}
}

func TestNewTimeSeriesResponse_Empty(t *testing.T) {
	resp := NewTimeSeriesResponse("IBM", models.IntervalDaily, nil, models.Series{})
	if resp.Bars == nil || len(resp.Bars) != 0 {
		t.Fatalf("empty series must serialize as [], got %v", resp.Bars)
	}
	if resp.Period != "" {
		t.Fatalf("period = %q, want empty without aggregation", resp.Period)
	}
}

func TestNewQuoteResponse(t *testing.T) {
	rec := models.NewRecord()
	rec.Set("Symbol", models.TextValue("IBM"))
	rec.Set("Price", models.NumberValue(141.93))
	rec.Set("ChangePercent", models.NumberValue(0.3275))

	resp := NewQuoteResponse("IBM", rec)
	if resp.Symbol != "IBM" {
		t.Fatalf("symbol = %q", resp.Symbol)
	}
	if resp.Values["Price"] != 141.93 {
		t.Fatalf("price = %v", resp.Values["Price"])
	}
	if resp.Values["Symbol"] != "IBM" {
		t.Fatalf("text field lost: %v", resp.Values["Symbol"])
	}
}
