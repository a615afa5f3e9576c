package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Input formats accepted in DATA_FORMAT.
const (
	FormatCompact = "compact"
	FormatMatrix  = "matrix"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Data source. DataSource is an http(s) base URL or a local directory;
	// file names are resolved against it.
	DataSource          string
	DataFormat          string
	RegionsFile         string
	CasesFile           string
	MatrixFile          string
	MatrixDeathsFile    string
	MatrixRecoveredFile string
	FetchTimeout        time.Duration
	FetchMaxRetries     int

	ChartCacheSize int

	// Optional region summary publishing.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "30s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	maxRetries, err := parseNonNegative("FETCH_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseNonNegative("CHART_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataSource:          sharedcfg.EnvOrDefault("DATA_SOURCE", "./data"),
		DataFormat:          sharedcfg.EnvOrDefault("DATA_FORMAT", FormatCompact),
		RegionsFile:         sharedcfg.EnvOrDefault("REGIONS_FILE", "regioninfo.csv"),
		CasesFile:           sharedcfg.EnvOrDefault("CASES_FILE", "caseinfo.dat"),
		MatrixFile:          sharedcfg.EnvOrDefault("MATRIX_FILE", "time_series_covid19_confirmed_global.csv"),
		MatrixDeathsFile:    os.Getenv("MATRIX_DEATHS_FILE"),
		MatrixRecoveredFile: os.Getenv("MATRIX_RECOVERED_FILE"),
		FetchTimeout:        fetchTimeout,
		FetchMaxRetries:     maxRetries,

		ChartCacheSize: cacheSize,

		KafkaEnabled:      os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "covid-region-summaries"),
	}

	if cfg.DataSource == "" {
		return nil, errors.New("DATA_SOURCE is required")
	}
	switch cfg.DataFormat {
	case FormatCompact:
		if cfg.RegionsFile == "" || cfg.CasesFile == "" {
			return nil, errors.New("REGIONS_FILE and CASES_FILE are required for the compact format")
		}
	case FormatMatrix:
		if cfg.MatrixFile == "" {
			return nil, errors.New("MATRIX_FILE is required for the matrix format")
		}
	default:
		return nil, fmt.Errorf("invalid DATA_FORMAT %q: want %s or %s", cfg.DataFormat, FormatCompact, FormatMatrix)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSummaryTopic == "" {
			return nil, errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseNonNegative(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}
