package app

import (
	"fmt"
	"time"

	server "github.com/admin/tg-bots/shop-bot/internal/adapters/primary/http"
	alerterAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/alerter"
	gatewayAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/gateway"
	kafkaAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/kafka"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/redis"
	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/telegram"
	"github.com/admin/tg-bots/shop-bot/internal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Postgres      *pg.Config                   `envconfig:"POSTGRES"`
	Redis         *redisAdapter.Config         `envconfig:"REDIS"`
	Log           *logger.Config               `envconfig:"LOG"`
	Server        *server.Config               `envconfig:"APISERVER"`
	Telegram      *telegram.Config             `envconfig:"TELEGRAM"`
	FiatGateway   *gatewayAdapter.FiatConfig   `envconfig:"FIAT_GATEWAY"`
	CryptoGateway *gatewayAdapter.CryptoConfig `envconfig:"CRYPTO_GATEWAY"`
	Kafka         *kafkaAdapter.Config         `envconfig:"KAFKA"`
	Alerter       *alerterAdapter.Config       `envconfig:"ALERTER"`
	Shop          ShopConfig                   `envconfig:"SHOP"`
}

// ShopConfig параметры бизнес-логики магазина
type ShopConfig struct {
	PaymentWindowSeconds     int    `envconfig:"PAYMENT_WINDOW_SECONDS" default:"60"`
	ReferralPercent          int64  `envconfig:"REFERRAL_PERCENT" default:"5"`
	Currency                 string `envconfig:"CURRENCY" default:"RUB"`
	TopUpMin                 string `envconfig:"TOPUP_MIN" default:"10"`
	TopUpMax                 string `envconfig:"TOPUP_MAX" default:"10000"`
	BroadcastDelayMillis     int    `envconfig:"BROADCAST_DELAY_MILLIS" default:"50"`
	InactivityThresholdHours int    `envconfig:"INACTIVITY_THRESHOLD_HOURS" default:"72"`
	ReminderIntervalMinutes  int    `envconfig:"REMINDER_INTERVAL_MINUTES" default:"60"`
	GatewayWebhookSecret     string `envconfig:"GATEWAY_WEBHOOK_SECRET"`
}

func (c *ShopConfig) PaymentWindow() time.Duration {
	return time.Duration(c.PaymentWindowSeconds) * time.Second
}

func (c *ShopConfig) BroadcastDelay() time.Duration {
	return time.Duration(c.BroadcastDelayMillis) * time.Millisecond
}

func (c *ShopConfig) InactivityThreshold() time.Duration {
	return time.Duration(c.InactivityThresholdHours) * time.Hour
}

func (c *ShopConfig) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalMinutes) * time.Minute
}

// TopUpBounds парсит границы суммы пополнения
func (c *ShopConfig) TopUpBounds() (decimal.Decimal, decimal.Decimal, error) {
	min, err := decimal.NewFromString(c.TopUpMin)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("bad TOPUP_MIN %q: %w", c.TopUpMin, err)
	}
	max, err := decimal.NewFromString(c.TopUpMax)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("bad TOPUP_MAX %q: %w", c.TopUpMax, err)
	}
	if max.LessThan(min) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("TOPUP_MAX %s below TOPUP_MIN %s", c.TopUpMax, c.TopUpMin)
	}
	return min, max, nil
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	if cfg.Telegram == nil || cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	return cfg, nil
}
