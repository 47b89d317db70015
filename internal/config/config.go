// Package config loads service configuration from the environment.
// A .env file is honored when present (dev setups), real deployments set
// the variables directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Captcha holds the captcha provider keypair.
type Captcha struct {
	SiteKey string
	Secret  string
}

// DBConfig selects the relational driver and connection parameters.
type DBConfig struct {
	Type string // "postgres" or "mysql"
	Host string
	User string
	Pass string
	Name string
}

// Config is the single configuration struct for the core service.
type Config struct {
	Port                string
	RegistrationEnabled bool
	Captcha             Captcha
	RealIPHeader        string // empty means no trusted header; bans inapplicable
	StaticDir           string
	MediaDir            string
	Host                string
	CitrusID            string // this server's federation identifier
	BlockedHosts        []string
	Secure              bool // https scheme for federation + Secure cookies

	Database  DBConfig
	CacheAddr string
	CachePass string
	CacheDB   int
}

// Load reads configuration from the environment, applying dev defaults.
func Load() (*Config, error) {
	// Missing .env is fine; env vars may come from the deployment.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getenv("RBEAM_PORT", "8080"),
		RegistrationEnabled: getenvBool("RBEAM_REGISTRATION_ENABLED", true),
		Captcha: Captcha{
			SiteKey: os.Getenv("RBEAM_CAPTCHA_SITE_KEY"),
			Secret:  os.Getenv("RBEAM_CAPTCHA_SECRET"),
		},
		RealIPHeader: os.Getenv("RBEAM_REAL_IP_HEADER"),
		StaticDir:    getenv("RBEAM_STATIC_DIR", "static"),
		MediaDir:     getenv("RBEAM_MEDIA_DIR", "media"),
		Host:         getenv("RBEAM_HOST", "localhost:8080"),
		CitrusID:     os.Getenv("RBEAM_CITRUS_ID"),
		Secure:       getenvBool("RBEAM_SECURE", false),
		Database: DBConfig{
			Type: getenv("RBEAM_DB_TYPE", "postgres"),
			Host: getenv("RBEAM_DB_HOST", "localhost"),
			User: getenv("RBEAM_DB_USER", "rbeam"),
			Pass: os.Getenv("RBEAM_DB_PASS"),
			Name: getenv("RBEAM_DB_NAME", "rbeam"),
		},
		CacheAddr: getenv("RBEAM_CACHE_ADDR", "localhost:6379"),
		CachePass: os.Getenv("RBEAM_CACHE_PASS"),
	}

	if blocked := os.Getenv("RBEAM_BLOCKED_HOSTS"); blocked != "" {
		for _, host := range strings.Split(blocked, ",") {
			if host = strings.TrimSpace(host); host != "" {
				cfg.BlockedHosts = append(cfg.BlockedHosts, host)
			}
		}
	}

	if raw := os.Getenv("RBEAM_CACHE_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RBEAM_CACHE_DB %q: %w", raw, err)
		}
		cfg.CacheDB = db
	}

	switch cfg.Database.Type {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}

	return cfg, nil
}

// DSN builds the driver connection string.
func (d DBConfig) DSN() string {
	switch d.Type {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", d.User, d.Pass, d.Host, d.Name)
	default:
		return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", d.User, d.Pass, d.Host, d.Name)
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
