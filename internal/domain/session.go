package domain

import "github.com/shopspring/decimal"

// PendingSession выбор пользователя в процессе оформления.
// Живёт только до финализации или нового выбора, потеря при рестарте допустима.
type PendingSession struct {
	UserID    int64           `json:"user_id"`
	ItemName  string          `json:"item_name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	PromoCode string          `json:"promo_code,omitempty"`
}
