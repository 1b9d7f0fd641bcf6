package notify

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
	"github.com/admin/tg-bots/shop-bot/internal/ports/telegram"
)

// Dispatcher best-effort доставка сообщений через Telegram.
// Массовая рассылка идёт последовательно с фиксированной паузой между
// отправками. Rate limit обрабатывается ровно одним повтором после
// подсказанной задержки, заблокировавшие бота получатели пропускаются.
// Сбой одного получателя никогда не прерывает батч.
type Dispatcher struct {
	client telegram.IClient
	delay  time.Duration // пауза между отправками в батче
	log    *slog.Logger

	sleep func(time.Duration) // подменяется в тестах
}

// New создаёт диспетчер уведомлений
func New(client telegram.IClient, sendDelay time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client: client,
		delay:  sendDelay,
		log:    log,
		sleep:  time.Sleep,
	}
}

var _ service.INotificationDispatcher = (*Dispatcher)(nil)

// Notify отправляет одно сообщение с обработкой rate limit
func (d *Dispatcher) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := d.sendOnce(ctx, func() (int64, error) {
		return d.client.SendMessage(ctx, chatID, text)
	})
	return err
}

// NotifyWithKeyboard отправляет одно сообщение с inline клавиатурой
func (d *Dispatcher) NotifyWithKeyboard(ctx context.Context, chatID int64, text string, keyboard map[string]interface{}) error {
	_, err := d.sendOnce(ctx, func() (int64, error) {
		return d.client.SendMessageWithKeyboard(ctx, chatID, text, keyboard)
	})
	return err
}

// Edit правит текст ранее отправленного сообщения по ссылке на него
func (d *Dispatcher) Edit(ctx context.Context, ref domain.NotifyRef, text string) error {
	err := d.client.EditMessageText(ctx, ref.ChatID, ref.MessageID, text)
	if throttled, ok := domain.AsThrottled(err); ok {
		d.sleep(throttled.RetryAfter)
		return d.client.EditMessageText(ctx, ref.ChatID, ref.MessageID, text)
	}
	return err
}

// Broadcast последовательно рассылает text всем chatIDs.
// Возвращает число доставленных; ошибка не nil только при отмене
// контекста, отдельные получатели батч не прерывают.
func (d *Dispatcher) Broadcast(ctx context.Context, chatIDs []int64, text string) (int64, error) {
	var delivered int64

	for i, chatID := range chatIDs {
		if err := ctx.Err(); err != nil {
			d.log.Warn("broadcast interrupted",
				"delivered", delivered,
				"total", len(chatIDs),
				"error", err,
			)
			return delivered, err
		}

		if i > 0 && d.delay > 0 {
			d.sleep(d.delay)
		}

		_, err := d.sendOnce(ctx, func() (int64, error) {
			return d.client.SendMessage(ctx, chatID, text)
		})
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, domain.ErrRecipientBlocked):
			d.log.Debug("recipient unreachable, skipping", "chat_id", chatID)
		default:
			d.log.Warn("failed to deliver broadcast message",
				"error", err,
				"chat_id", chatID,
			)
		}
	}

	d.log.Info("broadcast delivered",
		"delivered", delivered,
		"total", len(chatIDs),
	)
	return delivered, nil
}

// sendOnce выполняет отправку с ровно одним повтором после rate limit.
// Повторный rate limit возвращается как обычная временная ошибка.
func (d *Dispatcher) sendOnce(ctx context.Context, send func() (int64, error)) (int64, error) {
	messageID, err := send()
	if err == nil {
		return messageID, nil
	}

	if throttled, ok := domain.AsThrottled(err); ok {
		d.sleep(throttled.RetryAfter)
		return send()
	}

	return 0, err
}
