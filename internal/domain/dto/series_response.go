package dto

import (
	"time"

	"github.com/guttosm/avpulse/internal/domain/models"
)

// BarResponse is the JSON shape of one time-series bar. Only fields present
// in the normalized record are emitted; the upstream does not serve every
// field for every endpoint.
type BarResponse struct {
	Timestamp        time.Time `json:"timestamp"`
	Open             *float64  `json:"open,omitempty"`
	High             *float64  `json:"high,omitempty"`
	Low              *float64  `json:"low,omitempty"`
	Close            *float64  `json:"close,omitempty"`
	AdjustedClose    *float64  `json:"adjusted_close,omitempty"`
	Volume           *float64  `json:"volume,omitempty"`
	DividendAmount   *float64  `json:"dividend_amount,omitempty"`
	SplitCoefficient *float64  `json:"split_coefficient,omitempty"`
}

// TimeSeriesResponse is the JSON structure returned by GET /api/v1/timeseries.
//
// Fields match the API contract and may differ from internal domain models.
// This keeps the API surface loosely coupled from the pipeline types.
type TimeSeriesResponse struct {
	Symbol   string        `json:"symbol" example:"IBM"`
	Interval string        `json:"interval" example:"daily"`
	Period   string        `json:"period,omitempty" example:"week"`
	Bars     []BarResponse `json:"bars"`
}

// QuoteResponse is the JSON structure returned by GET /api/v1/quote/:symbol.
// Values keeps the upstream's own canonical field names, with numbers typed
// as numbers and everything else as text.
type QuoteResponse struct {
	Symbol string         `json:"symbol" example:"IBM"`
	Values map[string]any `json:"values"`
}

// NewTimeSeriesResponse converts a normalized series into the response DTO.
func NewTimeSeriesResponse(symbol string, interval models.Interval, period *models.Period, s models.Series) TimeSeriesResponse {
	resp := TimeSeriesResponse{
		Symbol:   symbol,
		Interval: string(interval),
		Bars:     make([]BarResponse, 0, len(s)),
	}
	if period != nil {
		resp.Period = string(*period)
	}
	for _, b := range s {
		bar := BarResponse{Timestamp: b.Timestamp}
		bar.Open = numberField(b, "open")
		bar.High = numberField(b, "high")
		bar.Low = numberField(b, "low")
		bar.Close = numberField(b, "close")
		bar.AdjustedClose = numberField(b, "adjusted_close")
		bar.Volume = numberField(b, "volume")
		bar.DividendAmount = numberField(b, "dividend_amount")
		bar.SplitCoefficient = numberField(b, "split_coefficient")
		resp.Bars = append(resp.Bars, bar)
	}
	return resp
}

// NewQuoteResponse flattens a normalized quote record into the response DTO.
// Nested records are skipped; GLOBAL_QUOTE payloads are flat in practice.
func NewQuoteResponse(symbol string, rec *models.Record) QuoteResponse {
	values := make(map[string]any, rec.Len())
	for _, name := range rec.Names() {
		v, _ := rec.Get(name)
		switch v.Kind {
		case models.KindNumber:
			values[name] = v.Number
		case models.KindText:
			values[name] = v.Text
		}
	}
	return QuoteResponse{Symbol: symbol, Values: values}
}

func numberField(b models.Bar, name string) *float64 {
	// underscore-insensitive: JSON payloads canonicalize to "AdjustedClose",
	// CSV ones to "adjusted_close"
	if f, ok := b.Number(name); ok {
		return &f
	}
	if f, ok := b.Number(stripUnderscores(name)); ok {
		return &f
	}
	return nil
}

func stripUnderscores(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
