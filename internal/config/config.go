package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultInspectionsURL is the NYC Open Data OData v4 endpoint for the DOHMH
// restaurant inspection results dataset.
const DefaultInspectionsURL = "https://data.cityofnewyork.us/api/odata/v4/43nn-pn8j"

// Config holds all service settings, populated from environment variables.
type Config struct {
	InspectionsURL       string
	InspectionsRateLimit float64
	InspectionsTimeout   time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RunInterval     time.Duration

	// Output sinks. An empty path disables the sink.
	WorkbookPath string
	SnapshotPath string
	SQLitePath   string

	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaRestaurantTopic string
	KafkaViolationTopic  string
	BatchSize            int
	BatchFlushInterval   time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxRateLimit float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	runInterval, err := parsePositiveDuration("RUN_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}

	inspectionsTimeout, err := parsePositiveDuration("INSPECTIONS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	inspectionsRate, err := parsePositiveFloat("INSPECTIONS_RATE_LIMIT", 2)
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxRate, err := parsePositiveFloat("MAPBOX_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	workbookPath := sharedcfg.EnvOrDefault("WORKBOOK_PATH", "nyc_restaurant_inspections.xlsx")
	snapshotPath := workbookPath
	if v, ok := os.LookupEnv("SNAPSHOT_PATH"); ok {
		snapshotPath = v
	}

	cfg := &Config{
		InspectionsURL:       sharedcfg.EnvOrDefault("INSPECTIONS_URL", DefaultInspectionsURL),
		InspectionsRateLimit: inspectionsRate,
		InspectionsTimeout:   inspectionsTimeout,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RunInterval:     runInterval,

		WorkbookPath: workbookPath,
		SnapshotPath: snapshotPath,
		SQLitePath:   os.Getenv("SQLITE_PATH"),

		KafkaEnabled:         os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRestaurantTopic: sharedcfg.EnvOrDefault("KAFKA_RESTAURANT_TOPIC", "restaurant-grades"),
		KafkaViolationTopic:  sharedcfg.EnvOrDefault("KAFKA_VIOLATION_TOPIC", "restaurant-violations"),
		BatchSize:            batchSize,
		BatchFlushInterval:   flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
		MapboxRateLimit: mapboxRate,
	}

	if cfg.InspectionsURL == "" {
		return nil, errors.New("INSPECTIONS_URL is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaRestaurantTopic == "" {
			return nil, errors.New("KAFKA_RESTAURANT_TOPIC is required")
		}
		if cfg.KafkaViolationTopic == "" {
			return nil, errors.New("KAFKA_VIOLATION_TOPIC is required")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
