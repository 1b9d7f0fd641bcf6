package cache

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// ISessionStore интерфейс для хранения PendingSession по пользователю.
// Сессия transient: новая выборка или финализация вытесняет старую,
// потеря при рестарте допустима.
type ISessionStore interface {
	// Get возвращает domain.ErrNotFound, если сессии нет
	Get(ctx context.Context, userID int64) (*domain.PendingSession, error)
	Set(ctx context.Context, session *domain.PendingSession) error
	Clear(ctx context.Context, userID int64) error
}
