package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/stashledger/internal/config"
	"github.com/fastprodman/stashledger/internal/infra/tracing"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LabelsFile  string   `env:"LABELS_FILE"`
	AdminActors []string `env:"ADMIN_ACTORS" envSeparator:","`

	AlertWebhookURL     string        `env:"ALERT_WEBHOOK_URL"`
	AlertWebhookTimeout time.Duration `env:"ALERT_WEBHOOK_TIMEOUT" envDefault:"5s"`

	JournalCapacity int `env:"JOURNAL_CAPACITY" envDefault:"1000"`

	Store   config.StoreConfig
	Policy  config.PolicyConfig
	Tracing tracing.Config
}
