package domain

import "time"

// PromoCode скидочный код, управляется админкой, здесь только читается
type PromoCode struct {
	Code        string     `json:"code" db:"code"`
	DiscountPct int64      `json:"discount_pct" db:"discount_pct"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	Active      bool       `json:"active" db:"active"`
}

// Valid проверяет, что код активен и срок действия не истёк
func (p *PromoCode) Valid(now time.Time) bool {
	if p == nil || !p.Active {
		return false
	}
	if p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
		return false
	}
	return true
}
