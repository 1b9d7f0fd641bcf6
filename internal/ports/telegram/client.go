package telegram

import (
	"context"
)

// IClient интерфейс для клиента Telegram API.
// Ошибки доставки классифицируются: domain.ErrRecipientBlocked для
// заблокировавших/удалённых получателей, *domain.ThrottledError при rate limit.
type IClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard map[string]interface{}) (int64, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID string, text string, showAlert bool) error
}
