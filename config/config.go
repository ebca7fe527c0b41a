// Package config maps environment variables (and an optional .env file)
// onto the engine's configuration.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	// Broker session
	BrokerBaseURL    string `envconfig:"BROKER_BASE_URL" default:"https://api.broker.example"`
	BrokerStreamURL  string `envconfig:"BROKER_STREAM_URL" default:"wss://stream.broker.example/quotes"`
	BrokerAPIKey     string `envconfig:"BROKER_API_KEY"`
	BrokerAccountID  string `envconfig:"BROKER_ACCOUNT_ID"`
	BrokerPassword   string `envconfig:"BROKER_PASSWORD"`
	BrokerTOTPSecret string `envconfig:"BROKER_TOTP_SECRET"`

	// Infrastructure
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"data/alerts.db"`
	MetricsAddr   string `envconfig:"METRICS_ADDR" default:":9090"`

	// Engine cadence
	EvalInterval          time.Duration `envconfig:"EVAL_INTERVAL" default:"15s"`
	StrengthInterval      time.Duration `envconfig:"STRENGTH_INTERVAL" default:"1m"`
	ConfigRefreshInterval time.Duration `envconfig:"CONFIG_REFRESH_INTERVAL" default:"5m"`

	// Strength board timeframes, comma-separated (e.g. "H1,H4")
	StrengthTimeframes []string `envconfig:"STRENGTH_TIMEFRAMES" default:"H1,H4"`

	// Alert state machine
	RearmMargin float64       `envconfig:"REARM_MARGIN" default:"5.0"`
	Cooldown    time.Duration `envconfig:"COOLDOWN" default:"30m"`

	// Delivery
	DispatchQueueSize int    `envconfig:"DISPATCH_QUEUE_SIZE" default:"256"`
	TelegramBotToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID    string `envconfig:"TELEGRAM_CHAT_ID"`
	WebhookURL        string `envconfig:"WEBHOOK_URL"`

	// DryRun swaps the live provider and Redis for in-memory stand-ins.
	DryRun bool `envconfig:"DRY_RUN"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the optional .env file and then the environment. A missing
// .env is not an error; production deployments set real env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
