package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUser  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	// Engine settings.
	ReportingTimezone string        `json:"reporting_timezone"` // IANA name, default UTC
	DedupFrequencies  []string      `json:"dedup_frequencies"`  // default daily,monthly
	SweepInterval     time.Duration `json:"sweep_interval"`     // default 24h
	RecomputeWorkers  int           `json:"recompute_workers"`  // default 4
	RecomputeTimeout  time.Duration `json:"recompute_timeout"`  // default 30s
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// Missing .env is fine in containerized deployments; plain env vars win.
		if err := godotenv.Load(); err != nil {
			log.Printf("no .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

		config = &Config{
			AppName: os.Getenv("APPNAME"),
			AppEnv:  os.Getenv("APPENV"),
			AppPort: uint16(appPort),
			GinMode: os.Getenv("GINMODE"),
			DBHost:  os.Getenv("DBHOST"),
			DBPort:  uint16(dbPort),
			DBName:  os.Getenv("DBNAME"),
			DBUser:  os.Getenv("DBUSER"),
			DBPass:  os.Getenv("DBPASS"),

			ReportingTimezone: envOrDefault("REPORTING_TZ", "UTC"),
			DedupFrequencies:  splitCSV(envOrDefault("DEDUP_FREQUENCIES", "daily,monthly")),
			SweepInterval:     envHours("SWEEP_INTERVAL_HOURS", 24*time.Hour),
			RecomputeWorkers:  envInt("RECOMPUTE_WORKERS", 4),
			RecomputeTimeout:  envSeconds("RECOMPUTE_TIMEOUT_SECONDS", 30*time.Second),
		}
	})
	return config
}

// ConnectMySQL establishes a connection to a MySQL database using the configuration values.
// TranslateError is on so unique-constraint violations surface as
// gorm.ErrDuplicatedKey; the dispensation dedup guard depends on that.
// In the test environment an in-memory SQLite database is used instead.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()

	if cfg.AppEnv == "test" {
		return gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// ReportingLocation resolves the configured reporting timezone, falling back
// to UTC on an unknown name rather than failing startup.
func (c *Config) ReportingLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReportingTimezone)
	if err != nil {
		log.Printf("unknown REPORTING_TZ %q, using UTC", c.ReportingTimezone)
		return time.UTC
	}
	return loc
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envHours(key string, fallback time.Duration) time.Duration {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return time.Duration(v) * time.Hour
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
