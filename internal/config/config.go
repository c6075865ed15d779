package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/creek-quality-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed sources. A DATABASE_URL switches both feeds to Postgres.
	SampleFeed      string
	SampleSkipRows  int
	CatalogFeed     string
	FeedTimeout     time.Duration
	DatabaseURL     string
	RefreshInterval time.Duration

	WeekAnchor domain.WeekAnchor
	Thresholds domain.Thresholds

	// Mapbox routing configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	RouteWorkers   int
	RouteTimeout   time.Duration
	NearZeroMeters float64

	// Summary publication.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	routeTimeout, err := parsePositiveDuration("ROUTE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	skipRows, err := parseInt("SAMPLE_FEED_SKIP_ROWS", 2, 0)
	if err != nil {
		return nil, err
	}
	routeWorkers, err := parseInt("ROUTE_WORKERS", 4, 1)
	if err != nil {
		return nil, err
	}
	nearZero, err := parseFloat("NEAR_ZERO_METERS", 0)
	if err != nil {
		return nil, err
	}
	if nearZero < 0 {
		return nil, errors.New("invalid NEAR_ZERO_METERS: must not be negative")
	}
	anchor, err := parseWeekAnchor()
	if err != nil {
		return nil, err
	}
	thresholds, err := parseThresholds()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled, err := parseBool("MAPBOX_ENABLED", mapboxToken != "")
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SampleFeed:      sharedcfg.EnvOrDefault("SAMPLE_FEED", "data/Updated results.csv"),
		SampleSkipRows:  skipRows,
		CatalogFeed:     sharedcfg.EnvOrDefault("CATALOG_FEED", "data/Site_loc.csv"),
		FeedTimeout:     feedTimeout,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RefreshInterval: refreshInterval,

		WeekAnchor: anchor,
		Thresholds: thresholds,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		RouteWorkers:   routeWorkers,
		RouteTimeout:   routeTimeout,
		NearZeroMeters: nearZero,

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "creek-site-summaries"),
	}

	if cfg.DatabaseURL == "" && (cfg.SampleFeed == "" || cfg.CatalogFeed == "") {
		return nil, errors.New("SAMPLE_FEED and CATALOG_FEED are required when DATABASE_URL is not set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
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

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseBool accepts the strconv.ParseBool spellings (1, t, TRUE, false, ...).
func parseBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func parseInt(key string, def, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseOptionalFloat(key string, def *float64) (*float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	if strings.EqualFold(s, "none") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &v, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekAnchor() (domain.WeekAnchor, error) {
	anchor := domain.DefaultWeekAnchor()
	if s := os.Getenv("WEEK_START_DAY"); s != "" {
		day, ok := weekdays[strings.ToLower(s)]
		if !ok {
			return anchor, fmt.Errorf("invalid WEEK_START_DAY %q", s)
		}
		anchor.Start = day
	}
	offset, err := parseInt("WEEK_START_OFFSET_DAYS", domain.DefaultWeekOffsetDays, -6)
	if err != nil {
		return anchor, err
	}
	if offset > 6 {
		return anchor, errors.New("invalid WEEK_START_OFFSET_DAYS: must be between -6 and 6")
	}
	anchor.OffsetDays = offset
	return anchor, nil
}

// parseThresholds starts from the EPA defaults. Setting a variable to "none"
// removes that bound.
func parseThresholds() (domain.Thresholds, error) {
	th := domain.DefaultThresholds()

	bounds := []struct {
		key   string
		field domain.Field
		min   bool
	}{
		{"ECOLI_THRESHOLD", domain.FieldEcoli, false},
		{"TOTAL_COLIFORM_THRESHOLD", domain.FieldTotalColiform, false},
		{"PH_MIN", domain.FieldPH, true},
		{"PH_MAX", domain.FieldPH, false},
		{"TURBIDITY_THRESHOLD", domain.FieldTurbidity, false},
	}
	for _, b := range bounds {
		limit := th[b.field]
		cur := limit.Max
		if b.min {
			cur = limit.Min
		}
		v, err := parseOptionalFloat(b.key, cur)
		if err != nil {
			return nil, err
		}
		if b.min {
			limit.Min = v
		} else {
			limit.Max = v
		}
		if limit.Min == nil && limit.Max == nil {
			delete(th, b.field)
			continue
		}
		th[b.field] = limit
	}

	if ph, ok := th[domain.FieldPH]; ok && ph.Min != nil && ph.Max != nil && *ph.Min > *ph.Max {
		return nil, errors.New("invalid PH_MIN: greater than PH_MAX")
	}
	return th, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
