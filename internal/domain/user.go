package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole роль пользователя
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
	UserRoleOwner    UserRole = "owner"
)

// User аккаунт покупателя. Баланс не может уходить в минус,
// ReferralID - слабая ссылка на пригласившего (только для начисления комиссии).
type User struct {
	TelegramID       int64           `json:"telegram_id" db:"telegram_id"`
	ChatID           int64           `json:"chat_id" db:"chat_id"`
	Username         *string         `json:"username,omitempty" db:"username"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	ReferralID       *int64          `json:"referral_id,omitempty" db:"referral_id"`
	Role             UserRole        `json:"role" db:"role"`
	Language         *string         `json:"language,omitempty" db:"language"`
	RegisteredAt     time.Time       `json:"registered_at" db:"registered_at"`
	LastActivityAt   *time.Time      `json:"last_activity_at,omitempty" db:"last_activity_at"`
	LastReminderSent *time.Time      `json:"last_reminder_sent,omitempty" db:"last_reminder_sent"`
}
