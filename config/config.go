package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// It is composed of smaller structs representing different concerns: the
// upstream API connection, the slice/fetch pipeline, the local bar cache,
// and the HTTP server.
//
// Example ENV equivalent:
//
//	ALPHAVANTAGE_API_KEY=demo
//	ALPHAVANTAGE_BASE_URL=https://www.alphavantage.co
//	HTTP_TIMEOUT_SECONDS=10
//	SLICE_PADDING=1
//	MAX_PARALLEL_SLICES=4
//	CACHE_DB_PATH=./avpulse.db
//	SERVER_PORT=8080
type Config struct {
	Upstream UpstreamConfig // upstream API connection settings
	Pipeline PipelineConfig // slice planning and fetch concurrency
	Cache    CacheConfig    // local SQLite bar cache
	Server   ServerConfig   // HTTP server configuration
}

// UpstreamConfig defines how the transport client reaches the market-data API.
type UpstreamConfig struct {
	APIKey  string        // credential appended to every query
	BaseURL string        // scheme+host of the upstream API
	Timeout time.Duration // per-request HTTP timeout
}

// PipelineConfig tunes the request pipeline.
//
// Fields:
//   - SlicePadding: extra slice windows requested on each side of a ranged
//     intraday query (upstream month boundaries are inexact).
//   - MaxParallelSlices: concurrent slice fetches per request (1 = sequential).
type PipelineConfig struct {
	SlicePadding      int
	MaxParallelSlices int
}

// CacheConfig locates the SQLite bar cache. An empty Path disables caching.
type CacheConfig struct {
	Path string
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig(). Pipeline components never read it
// directly: they receive explicit immutable values taken from it at wiring
// time, so a running request can never observe a config change.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from a .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() terminates the app
//     with a descriptive log message.
func LoadConfig() {
	// Default values
	viper.SetDefault("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 10)
	viper.SetDefault("SLICE_PADDING", 1)
	viper.SetDefault("MAX_PARALLEL_SLICES", 4)
	viper.SetDefault("CACHE_DB_PATH", "")
	viper.SetDefault("SERVER_PORT", "8080")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	AppConfig = Config{
		Upstream: UpstreamConfig{
			APIKey:  viper.GetString("ALPHAVANTAGE_API_KEY"),
			BaseURL: viper.GetString("ALPHAVANTAGE_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		},
		Pipeline: PipelineConfig{
			SlicePadding:      viper.GetInt("SLICE_PADDING"),
			MaxParallelSlices: viper.GetInt("MAX_PARALLEL_SLICES"),
		},
		Cache: CacheConfig{
			Path: viper.GetString("CACHE_DB_PATH"),
		},
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
	}

	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
func validateConfig() {
	var missing []string

	if AppConfig.Upstream.APIKey == "" {
		missing = append(missing, "ALPHAVANTAGE_API_KEY")
	}
	if AppConfig.Upstream.BaseURL == "" {
		missing = append(missing, "ALPHAVANTAGE_BASE_URL")
	}
	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
