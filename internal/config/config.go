package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type StoreDriver string

const (
	StoreMemory   StoreDriver = "memory"
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
)

func (d *StoreDriver) UnmarshalText(b []byte) error {
	switch v := StoreDriver(strings.ToLower(strings.TrimSpace(string(b)))); v {
	case StoreMemory, StorePostgres, StoreSQLite:
		*d = v
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", string(b))
	}
}

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"stashledger.db"`
}

type PolicyConfig struct {
	ExchangeRate         uint64 `env:"POLICY_EXCHANGE_RATE" envDefault:"4000"`
	VolumeThreshold      uint64 `env:"POLICY_VOLUME_THRESHOLD" envDefault:"50"`
	FundsVolumeThreshold uint64 `env:"POLICY_FUNDS_VOLUME_THRESHOLD" envDefault:"0"`
}

type StoreConfig struct {
	Driver   StoreDriver `env:"STORE_DRIVER" envDefault:"memory"`
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// Parse loads .env (when present) and then the environment into target.
// Variables already set in the environment win over the file.
func Parse(target any) error {
	err := godotenv.Load()
	if err != nil {
		slog.Debug("no .env loaded", "error", err)
	}

	err = env.Parse(target)
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}
