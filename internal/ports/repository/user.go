package repository

import (
	"context"
	"time"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// IUserRepo интерфейс для работы с пользователями в БД
type IUserRepo interface {
	Create(ctx context.Context, user *domain.User) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)

	// ApplyBalanceDelta атомарно применяет дельту к балансу.
	// Возвращает domain.ErrInsufficientFunds, если баланс ушёл бы в минус.
	ApplyBalanceDelta(ctx context.Context, telegramID int64, delta decimal.Decimal) (decimal.Decimal, error)

	GetAllChatIDs(ctx context.Context) ([]int64, error)
	ListInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.User, error)
	SetLastReminderSent(ctx context.Context, telegramID int64, at time.Time) error
	TouchActivity(ctx context.Context, telegramID int64, at time.Time) error
}
