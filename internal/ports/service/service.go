package service

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IAlerterService интерфейс для отправки алертов владельцу магазина
type IAlerterService interface {
	SendAlert(ctx context.Context, message string) error
}

// INotificationDispatcher best-effort доставка сообщений пользователям.
// Ошибки доставки не выходят за пределы одного получателя.
type INotificationDispatcher interface {
	Notify(ctx context.Context, chatID int64, text string) error
	NotifyWithKeyboard(ctx context.Context, chatID int64, text string, keyboard map[string]interface{}) error
	Edit(ctx context.Context, ref domain.NotifyRef, text string) error

	// Broadcast последовательно рассылает text всем chatIDs.
	// Возвращает число успешно доставленных, батч не прерывается
	// из-за отдельных получателей.
	Broadcast(ctx context.Context, chatIDs []int64, text string) (int64, error)
}
