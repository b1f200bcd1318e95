package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/avpulse/internal/domain/models"
	"github.com/guttosm/avpulse/internal/logger"
	"github.com/guttosm/avpulse/internal/normalize"
	"github.com/guttosm/avpulse/internal/series"
	"github.com/guttosm/avpulse/internal/slicing"
	"github.com/guttosm/avpulse/internal/storage"
)

// Fetcher is the transport collaborator: one bounded upstream query.
type Fetcher interface {
	Fetch(ctx context.Context, params map[string]string) ([]byte, error)
}

// SeriesService defines the business operations exposed over HTTP and the
// CLI: fetching normalized time series and single quotes.
type SeriesService interface {
	GetTimeSeries(ctx context.Context, symbol string, interval models.Interval, period *models.Period, start, end *time.Time) (models.Series, error)
	GetQuote(ctx context.Context, symbol string) (*models.Record, error)
}

type seriesService struct {
	fetch       Fetcher
	planner     *slicing.Planner
	cache       storage.BarsRepository // nil disables write-through
	maxParallel int
}

// Options carries the wiring knobs for NewSeriesService.
type Options struct {
	Planner     *slicing.Planner       // nil → default clock and padding
	Cache       storage.BarsRepository // nil → no local caching
	MaxParallel int                    // concurrent slice fetches, min 1
}

// NewSeriesService builds the orchestrator on top of a transport collaborator.
func NewSeriesService(fetch Fetcher, opts Options) SeriesService {
	planner := opts.Planner
	if planner == nil {
		planner = slicing.NewPlanner(nil, slicing.DefaultPadding)
	}
	maxParallel := opts.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &seriesService{
		fetch:       fetch,
		planner:     planner,
		cache:       opts.Cache,
		maxParallel: maxParallel,
	}
}

// GetTimeSeries runs the whole pipeline for one symbol:
//
//	plan slices (intraday only) → fetch → parse/normalize → concatenate in
//	request order → range filter → synthetic-period aggregation.
//
// A synthetic period requires daily or finer source data; asking for a
// weekly series aggregated by quarter is rejected rather than guessed at.
// Any slice failing fails the whole request: a partially concatenated series
// would silently corrupt aggregation downstream.
func (s *seriesService) GetTimeSeries(ctx context.Context, symbol string, interval models.Interval, period *models.Period, start, end *time.Time) (models.Series, error) {
	if period != nil && !interval.Intraday() && interval != models.IntervalDaily {
		return nil, fmt.Errorf("period %q requires a daily or intraday interval, got %q", *period, interval)
	}

	var (
		out models.Series
		err error
	)
	if interval.Intraday() {
		out, err = s.fetchSliced(ctx, symbol, interval, start, end)
	} else {
		out, err = s.fetchSingle(ctx, symbol, interval)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// cache the raw fetch under its native interval; filtering and
		// aggregation are cheap to redo, fetching is not
		if err := s.cache.SaveBars(symbol, interval, out); err != nil {
			logger.L().Warn().Str("symbol", symbol).Err(err).Msg("bar cache write failed")
		}
	}

	out = series.FilterRange(out, start, end)
	if period != nil {
		out = series.Aggregate(out, *period)
	}
	return out, nil
}

// GetQuote fetches the latest quote for one symbol as a flat record.
func (s *seriesService) GetQuote(ctx context.Context, symbol string) (*models.Record, error) {
	body, err := s.fetch.Fetch(ctx, map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
	})
	if err != nil {
		return nil, err
	}
	raw, err := normalize.DecodeJSON(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return normalize.ParseResponse(raw)
}

// fetchSingle serves daily-and-coarser intervals: one unparameterized query,
// JSON payload, series extracted from the normalized record.
func (s *seriesService) fetchSingle(ctx context.Context, symbol string, interval models.Interval) (models.Series, error) {
	function := map[models.Interval]string{
		models.IntervalDaily:   "TIME_SERIES_DAILY_ADJUSTED",
		models.IntervalWeekly:  "TIME_SERIES_WEEKLY_ADJUSTED",
		models.IntervalMonthly: "TIME_SERIES_MONTHLY_ADJUSTED",
	}[interval]
	if function == "" {
		return nil, fmt.Errorf("no endpoint for interval %q", interval)
	}

	body, err := s.fetch.Fetch(ctx, map[string]string{
		"function":   function,
		"symbol":     symbol,
		"outputsize": "full",
	})
	if err != nil {
		return nil, err
	}

	raw, err := normalize.DecodeJSON(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	rec, err := normalize.ParseResponse(raw)
	if err != nil {
		return nil, err
	}

	v, ok := rec.Lookup("TimeSeries")
	if !ok {
		// normalized but series-less payload, e.g. an unknown symbol
		return models.Series{}, nil
	}
	if v.Kind != models.KindSeries {
		return nil, fmt.Errorf("TimeSeries field has unexpected kind %d", v.Kind)
	}
	return v.Series, nil
}

// fetchSliced serves intraday intervals. The upstream only returns bounded
// monthly windows for sub-daily data, one CSV payload per window, so the
// planner picks the windows and each is fetched as an independent unit of
// work. Workers may run in any order but results land in an index-addressed
// slice, so concatenation always follows the planned window order.
func (s *seriesService) fetchSliced(ctx context.Context, symbol string, interval models.Interval, start, end *time.Time) (models.Series, error) {
	windows := s.planner.PlanSlices(start, end)
	if len(windows) == 0 {
		return models.Series{}, nil
	}

	logger.L().Debug().
		Str("symbol", symbol).
		Str("interval", string(interval)).
		Int("slices", len(windows)).
		Msg("sliced fetch start")

	results := make([]models.Series, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, s.maxParallel)

	for i, w := range windows {
		idx := i
		window := w
		sem <- struct{}{}

		g.Go(func() error {
			defer func() { <-sem }()
			startedAt := time.Now()

			body, err := s.fetch.Fetch(gctx, map[string]string{
				"function": "TIME_SERIES_INTRADAY_EXTENDED",
				"symbol":   symbol,
				"interval": string(interval),
				"slice":    string(window),
			})
			if err != nil {
				return fmt.Errorf("slice %s: %w", window, err)
			}

			part, err := normalize.ParseCSV(bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("slice %s: %w", window, err)
			}

			results[idx] = part
			logger.L().Debug().
				Str("slice", string(window)).
				Int("rows", len(part)).
				Dur("elapsed", time.Since(startedAt)).
				Msg("slice done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := models.Series{}
	for _, part := range results {
		out = append(out, part...)
	}
	return out, nil
}
