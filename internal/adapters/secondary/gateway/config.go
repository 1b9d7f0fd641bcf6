package gateway

// FiatConfig параметры фиатного платёжного агрегатора
type FiatConfig struct {
	BaseURL    string `envconfig:"BASE_URL"`
	APIKey     string `envconfig:"API_KEY"`
	MerchantID string `envconfig:"MERCHANT_ID"`
}

// CryptoConfig параметры крипто-процессинга
type CryptoConfig struct {
	BaseURL string `envconfig:"BASE_URL"`
	APIKey  string `envconfig:"API_KEY"`
}
