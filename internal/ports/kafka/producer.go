package kafka

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IEventProducer публикует события магазина в аналитический топик.
// Публикация best-effort: ошибка продюсера не откатывает продажу.
type IEventProducer interface {
	PublishPurchase(ctx context.Context, purchase *domain.Purchase) error
	PublishTopUp(ctx context.Context, op *domain.Operation) error
	Close() error
}
