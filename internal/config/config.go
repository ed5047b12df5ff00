// Package config loads runtime configuration from the environment. A .env
// file in the working directory is read first when present; real environment
// variables always win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sheikh-saqib/educoin-ledger/internal/models"
)

const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds configurable options for the ledger binaries.
type Config struct {
	Store        string
	LedgerFile   string
	SQLitePath   string
	DatabaseURL  string
	Roster       []string
	HTTPAddr     string
	KafkaBrokers []string
	KafkaTopic   string
	LogLevel     slog.Level
}

// Load reads the given env files (".env" when none are named) and then builds
// the configuration from the process environment. A missing default .env is
// not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables, applying
// defaults for anything unset.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Store:        getenv("LEDGER_STORE", StoreFile),
		LedgerFile:   getenv("LEDGER_FILE", "ledger.json"),
		SQLitePath:   getenv("SQLITE_PATH", "ledger.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Roster:       models.DefaultRoster,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "educoin.transactions"),
		LogLevel:     slog.LevelInfo,
	}

	switch cfg.Store {
	case StoreFile, StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when LEDGER_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_STORE %q", cfg.Store)
	}

	if raw, ok := os.LookupEnv("LEDGER_ROSTER"); ok {
		roster, err := parseRoster(raw)
		if err != nil {
			return nil, err
		}
		cfg.Roster = roster
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}

func parseRoster(raw string) ([]string, error) {
	names := splitList(raw)
	if len(names) == 0 {
		return nil, errors.New("LEDGER_ROSTER must name at least one account")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("LEDGER_ROSTER: duplicate account %q", name)
		}
		seen[name] = struct{}{}
	}
	return names, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
