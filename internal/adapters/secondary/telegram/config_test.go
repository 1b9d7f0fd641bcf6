package telegram

import "testing"

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("webhook mode requires url and secret", func(t *testing.T) {
		t.Parallel()

		cfg := Config{UseWebhook: "true", WebhookURL: "https://bot.example.com"}
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for empty webhook secret, got nil")
		}

		cfg.WebhookURL = ""
		cfg.WebhookSecret = "s3cret"
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for empty webhook url, got nil")
		}

		cfg.WebhookURL = "https://bot.example.com"
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("polling mode needs neither", func(t *testing.T) {
		t.Parallel()

		cfg := Config{UseWebhook: "false"}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
