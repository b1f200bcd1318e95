package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/avpulse/config"
	"github.com/guttosm/avpulse/internal/app"
	"github.com/guttosm/avpulse/internal/domain/dto"
	"github.com/guttosm/avpulse/internal/domain/models"
	"github.com/guttosm/avpulse/internal/logger"
	"github.com/guttosm/avpulse/internal/service"
	"github.com/guttosm/avpulse/internal/slicing"
	"github.com/guttosm/avpulse/internal/storage"
	"github.com/guttosm/avpulse/internal/transport"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up
// resources when an OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// newService wires a standalone pipeline for the one-shot modes, reusing the
// same configuration the API mode consumes.
func newService() (service.SeriesService, func()) {
	cfg := config.AppConfig
	client := transport.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout)

	var cache storage.BarsRepository
	cleanup := func() {}
	if cfg.Cache.Path != "" {
		opened, err := storage.NewBarsRepository(cfg.Cache.Path)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("bar cache open error")
		}
		cache = opened
		cleanup = func() { _ = opened.Close() }
	}

	svc := service.NewSeriesService(client, service.Options{
		Planner:     slicing.NewPlanner(nil, cfg.Pipeline.SlicePadding),
		Cache:       cache,
		MaxParallel: cfg.Pipeline.MaxParallelSlices,
	})
	return svc, cleanup
}

// parseBound reads an optional date or date-time CLI flag value.
func parseBound(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	logger.L().Fatal().Str("value", s).Msg("invalid date flag, expected YYYY-MM-DD or RFC 3339")
	return nil
}

// main is the entry point of the avpulse application.
//
// Modes (selected via --mode flag):
//   - fetch: One-shot fetch of a symbol's time series, printed as JSON.
//   - quote: One-shot fetch of a symbol's latest quote, printed as JSON.
//   - api:   Starts the REST API exposing the pipeline.
//
// Flags:
//   - --mode:     Execution mode ("fetch", "quote" or "api"). Default: "fetch".
//   - --symbol:   Ticker symbol for fetch/quote modes.
//   - --interval: Query interval (1min..60min, daily, weekly, monthly). Default: "daily".
//   - --period:   Optional synthetic period (week, month, quarter, year).
//   - --start:    Optional lower bound (YYYY-MM-DD or RFC 3339).
//   - --end:      Optional upper bound (same formats).
//   - --port:     Port for API mode. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "fetch", "Mode: fetch, quote or api")
	symbol := flag.String("symbol", "", "Ticker symbol (fetch/quote modes)")
	intervalFlag := flag.String("interval", "daily", "Interval: 1min..60min, daily, weekly, monthly")
	periodFlag := flag.String("period", "", "Synthetic period: week, month, quarter, year")
	startFlag := flag.String("start", "", "Start bound (YYYY-MM-DD or RFC 3339)")
	endFlag := flag.String("end", "", "End bound (YYYY-MM-DD or RFC 3339)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "fetch":
		if *symbol == "" {
			logger.L().Fatal().Msg("--symbol is required in fetch mode")
		}
		interval, err := models.ParseInterval(*intervalFlag)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid --interval")
		}
		var period *models.Period
		if *periodFlag != "" {
			p, err := models.ParsePeriod(*periodFlag)
			if err != nil {
				logger.L().Fatal().Err(err).Msg("invalid --period")
			}
			period = &p
		}

		svc, cleanup := newService()
		defer cleanup()

		s, err := svc.GetTimeSeries(ctx, *symbol, interval, period, parseBound(*startFlag), parseBound(*endFlag))
		if err != nil {
			logger.L().Fatal().Err(err).Msg("fetch failed")
		}

		enc := json.NewEncoder(os.Stdout)
		resp := dto.NewTimeSeriesResponse(*symbol, interval, period, s)
		for _, bar := range resp.Bars {
			if err := enc.Encode(bar); err != nil {
				logger.L().Fatal().Err(err).Msg("encode bar")
			}
		}
		logger.L().Info().Int("bars", len(resp.Bars)).Msg("fetch completed")

	case "quote":
		if *symbol == "" {
			logger.L().Fatal().Msg("--symbol is required in quote mode")
		}

		svc, cleanup := newService()
		defer cleanup()

		rec, err := svc.GetQuote(ctx, *symbol)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("quote failed")
		}
		if err := json.NewEncoder(os.Stdout).Encode(dto.NewQuoteResponse(*symbol, rec)); err != nil {
			logger.L().Fatal().Err(err).Msg("encode quote")
		}

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
