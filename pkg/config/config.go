package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	ServerAddr   string
	MaxBodyBytes int64 // bytes for /collect payload

	// Store
	StoreDriver string // postgres, sqlite, memory
	PGDSN       string
	SQLitePath  string
	StoreTable  string // postgres table name

	// Downstream calls
	ClassifierURL       string
	ClassifierTimeoutMS int64
	StoreTimeoutMS      int64

	// Browser callers
	AllowedOrigins  []string
	DevAllowOrigins bool // relax the allow-list entirely

	// Enabled exporters: kafka, ndjson
	Exports []string
}

func getOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func getBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	switch v {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}
func getInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getStringSlice(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func Load() Config {
	return Config{
		ServerAddr:   getOr("SERVER_ADDR", ":8089"),
		MaxBodyBytes: getInt64("MAX_BODY_BYTES", 1<<20), // 1 MiB default

		StoreDriver: getOr("STORE_DRIVER", "postgres"),
		PGDSN:       getOr("PG_DSN", ""),
		SQLitePath:  getOr("SQLITE_PATH", "botsense.db"),
		StoreTable:  getOr("STORE_TABLE", "records"),

		ClassifierURL:       getOr("CLASSIFIER_URL", "http://127.0.0.1:5001/collect"),
		ClassifierTimeoutMS: getInt64("CLASSIFIER_TIMEOUT_MS", 5000),
		StoreTimeoutMS:      getInt64("STORE_TIMEOUT_MS", 5000),

		AllowedOrigins:  getStringSlice("ALLOWED_ORIGINS", ""),
		DevAllowOrigins: getBool("DEV_ALLOW_ALL_ORIGINS", false),

		Exports: getStringSlice("EXPORTS", ""),
	}
}
