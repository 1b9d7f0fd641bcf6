package telegram

import "errors"

type Config struct {
	BotToken       string `envconfig:"BOT_TOKEN"`
	UseWebhook     string `envconfig:"USE_WEBHOOK"` // Railway требует строки
	WebhookURL     string `envconfig:"WEBHOOK_URL"`
	WebhookSecret  string `envconfig:"WEBHOOK_SECRET"`
	PollingTimeout int    `envconfig:"POLLING_TIMEOUT"`
}

// IsWebhookEnabled парсит строку UseWebhook в boolean
func (c *Config) IsWebhookEnabled() bool {
	return c.UseWebhook == "true" || c.UseWebhook == "1" || c.UseWebhook == "True"
}

// Validate проверяет полноту конфигурации webhook режима.
// Контроллер сверяет заголовок с секретом, поэтому пустой секрет
// означал бы отказ на каждом обновлении.
func (c *Config) Validate() error {
	if !c.IsWebhookEnabled() {
		return nil
	}
	if c.WebhookURL == "" {
		return errors.New("webhook_url is required when use_webhook is true")
	}
	if c.WebhookSecret == "" {
		return errors.New("webhook_secret is required when use_webhook is true")
	}
	return nil
}
