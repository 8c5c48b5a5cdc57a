package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Persistence.
	StoreDriver    string
	DatabaseURL    string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	SQLitePath     string
	DBAutoMigrate  bool
	DBMaxOpenConns int

	// GeoAdmin geocoding configuration.
	GeocoderEnabled    bool
	GeocoderBaseURL    string
	GeocoderTimeout    time.Duration
	GeocoderMaxRetries int

	// Promotion events are published only when brokers are configured.
	KafkaBrokers         []string
	KafkaPromotionsTopic string
}

// LoadDotEnv seeds the environment from a .env file when one exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODER_TIMEOUT", "5s"))
	if err != nil || geocoderTimeout <= 0 {
		return nil, errors.New("invalid GEOCODER_TIMEOUT")
	}

	geocoderRetries, err := parseNonNegativeInt("GEOCODER_MAX_RETRIES", "0")
	if err != nil {
		return nil, err
	}

	dbPort, err := parseNonNegativeInt("DB_PORT", "5432")
	if err != nil {
		return nil, err
	}

	maxOpenConns, err := parseNonNegativeInt("DB_MAX_OPEN_CONNS", "20")
	if err != nil {
		return nil, err
	}
	if maxOpenConns == 0 {
		return nil, errors.New("DB_MAX_OPEN_CONNS must be at least 1")
	}

	autoMigrate, err := parseBool("DB_AUTO_MIGRATE", "true")
	if err != nil {
		return nil, err
	}

	geocoderEnabled, err := parseBool("GEOCODER_ENABLED", "true")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreDriver:    sharedcfg.EnvOrDefault("STORE_DRIVER", DriverPostgres),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBHost:         sharedcfg.EnvOrDefault("DB_HOST", "localhost"),
		DBPort:         dbPort,
		DBUser:         sharedcfg.EnvOrDefault("DB_USER", "postgres"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         sharedcfg.EnvOrDefault("DB_NAME", "grocery_deals"),
		DBSSLMode:      sharedcfg.EnvOrDefault("DB_SSLMODE", "disable"),
		SQLitePath:     sharedcfg.EnvOrDefault("SQLITE_PATH", "grocery_deals.db"),
		DBAutoMigrate:  autoMigrate,
		DBMaxOpenConns: maxOpenConns,

		GeocoderEnabled:    geocoderEnabled,
		GeocoderBaseURL:    sharedcfg.EnvOrDefault("GEOCODER_BASE_URL", "https://api3.geo.admin.ch/rest/services/api/SearchServer"),
		GeocoderTimeout:    geocoderTimeout,
		GeocoderMaxRetries: geocoderRetries,

		KafkaBrokers:         parseBrokers(),
		KafkaPromotionsTopic: sharedcfg.EnvOrDefault("KAFKA_PROMOTIONS_TOPIC", "grocery-promotions"),
	}

	if cfg.StoreDriver != DriverPostgres && cfg.StoreDriver != DriverSQLite {
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if cfg.StoreDriver == DriverSQLite && cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH is required when STORE_DRIVER is sqlite")
	}
	if cfg.GeocoderEnabled {
		if _, err := url.ParseRequestURI(cfg.GeocoderBaseURL); err != nil {
			return nil, errors.New("invalid GEOCODER_BASE_URL")
		}
	}
	if cfg.EventsEnabled() && cfg.KafkaPromotionsTopic == "" {
		return nil, errors.New("KAFKA_PROMOTIONS_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// EventsEnabled reports whether promotion events should be published.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// PostgresDSN returns DATABASE_URL when set, otherwise a key/value DSN built
// from the DB_* settings.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBName, c.DBSSLMode)
	if c.DBPassword != "" {
		dsn += " password=" + c.DBPassword
	}
	return dsn
}

func parseBrokers() []string {
	v := os.Getenv("KAFKA_BROKERS")
	if v == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(v)
}

func parseNonNegativeInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBool(key, def string) (bool, error) {
	b, err := strconv.ParseBool(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
