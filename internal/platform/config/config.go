package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultSourceURL is the ASTRA open-data file with the type-approval
// emission records. The response body is tab-separated, windows-1252 encoded.
const DefaultSourceURL = "https://opendata.astra.admin.ch/ivzod/2000-Typengenehmigungen_TG_TARGA/2200-Basisdaten_TG_ab_1995/emissionen.txt"

// Config captures everything the binaries need from the environment.
type Config struct {
	Addr            string
	DataDir         string
	DatabasePath    string
	SourceURL       string
	CheckTimeout    time.Duration
	DownloadTimeout time.Duration
	DefaultLanguage string
	AdminToken      string
}

// SourcePath is where the downloaded file lands before import.
func (c Config) SourcePath() string {
	return filepath.Join(c.DataDir, "emissionen.txt")
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("FZD_ADDR", ":8080"),
		DataDir:         envOr("FZD_DATA_DIR", "data"),
		DatabasePath:    envOr("FZD_DB_PATH", "emissionen.db"),
		SourceURL:       envOr("FZD_SOURCE_URL", DefaultSourceURL),
		CheckTimeout:    5 * time.Second,
		DownloadTimeout: 2 * time.Minute,
		DefaultLanguage: envOr("FZD_LANG", "en"),
		AdminToken:      os.Getenv("FZD_ADMIN_TOKEN"),
	}

	if v := os.Getenv("FZD_CHECK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CheckTimeout = d
		}
	}
	if v := os.Getenv("FZD_DOWNLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DownloadTimeout = d
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
