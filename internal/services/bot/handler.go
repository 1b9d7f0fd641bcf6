package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// HandleUpdate основной метод для обработки всех типов обновлений
func (s *Service) HandleUpdate(ctx context.Context, update *domain.Update) error {
	if update == nil {
		return fmt.Errorf("update is nil")
	}

	if update.CallbackQuery != nil {
		return s.handleCallback(ctx, update.CallbackQuery, update.UpdateID)
	}
	if update.Message != nil {
		return s.handleMessage(ctx, update.Message, update.UpdateID)
	}

	return nil
}

// handleMessage обрабатывает входящее сообщение - роутинг по командам
func (s *Service) handleMessage(ctx context.Context, message *domain.Message, updateID int64) error {
	if message.From == nil || message.From.IsBot {
		s.Log.Debug("ignoring message from bot", "update_id", updateID)
		return nil
	}

	if message.Chat == nil {
		return nil
	}
	if message.Chat.Type != "private" {
		s.Log.Warn("ignoring message from group/chat",
			"update_id", updateID,
			"chat_type", message.Chat.Type,
			"chat_id", message.Chat.ID,
		)
		return nil
	}

	if message.Text == nil {
		return nil
	}
	text := *message.Text

	user, err := s.ensureUser(ctx, message.From, message.Chat.ID, text)
	if err != nil {
		s.Log.Error("failed to get or create user",
			"error", err,
			"telegram_user_id", message.From.ID,
			"update_id", updateID,
		)
		return fmt.Errorf("failed to get or create user: %w", err)
	}

	if !IsCommand(text) {
		// вне команд бот принимает только промокоды для открытой сессии
		if _, err := s.Shop.ApplyPromo(ctx, user.TelegramID, strings.TrimSpace(text)); err != nil {
			return s.replyOnBusinessError(ctx, user.ChatID, err)
		}
		return s.notify(ctx, user.ChatID, "Промокод применён.")
	}

	command, args := ParseCommand(text)
	switch command {
	case "start":
		return s.notify(ctx, user.ChatID, "Добро пожаловать в магазин! /buy <товар>, /topup <сумма>, /profile")
	case "profile":
		return s.sendProfile(ctx, user.TelegramID, user.ChatID)
	case "buy":
		return s.startPurchase(ctx, user.TelegramID, user.ChatID, args)
	case "confirm":
		return s.confirmPurchase(ctx, user.TelegramID, user.ChatID)
	case "topup":
		return s.startTopUp(ctx, user.TelegramID, user.ChatID, args)
	case "history":
		return s.sendHistory(ctx, user.TelegramID, user.ChatID)
	case "broadcast":
		return s.broadcast(ctx, user.TelegramID, user.ChatID, args)
	default:
		return s.notify(ctx, user.ChatID, "Неизвестная команда.")
	}
}

// handleCallback обрабатывает нажатия inline кнопок
func (s *Service) handleCallback(ctx context.Context, callback *domain.CallbackQuery, updateID int64) error {
	if callback.From == nil || callback.Data == nil || callback.Message == nil || callback.Message.Chat == nil {
		s.Log.Debug("ignoring malformed callback", "update_id", updateID)
		return nil
	}

	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	data := *callback.Data

	answer := func(text string) error {
		return s.Telegram.AnswerCallbackQuery(ctx, callback.ID, text, false)
	}

	switch {
	case strings.HasPrefix(data, "check_"):
		operationID := strings.TrimPrefix(data, "check_")
		status, err := s.Shop.CheckPayment(ctx, userID, operationID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return answer("Счёт не найден или уже обработан.")
		case errors.Is(err, domain.ErrGatewayUnavailable):
			return answer("Платёжная система недоступна, попробуйте позже.")
		case err != nil:
			s.Log.Error("manual payment check failed", "error", err, "operation_id", operationID)
			return answer("Не удалось проверить оплату.")
		case status == domain.OperationStatusFinished:
			return answer("Оплата получена!")
		case status == domain.OperationStatusPending:
			return answer("Оплата пока не поступила.")
		default:
			return answer("Счёт истёк.")
		}

	case strings.HasPrefix(data, "cancel_"):
		operationID := strings.TrimPrefix(data, "cancel_")
		if err := s.Shop.CancelInvoice(ctx, userID, operationID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return answer("Счёт не найден или уже обработан.")
			}
			s.Log.Error("invoice cancellation failed", "error", err, "operation_id", operationID)
			return answer("Не удалось отменить счёт.")
		}
		return answer("Счёт отменён.")

	case data == "confirm_purchase":
		if err := answer(""); err != nil {
			s.Log.Warn("failed to answer callback", "error", err)
		}
		return s.confirmPurchase(ctx, userID, chatID)

	default:
		s.Log.Debug("unknown callback data", "data", data, "update_id", updateID)
		return answer("")
	}
}

// ensureUser регистрирует/находит пользователя; для /start с deep-link
// параметром вытаскивает id пригласившего
func (s *Service) ensureUser(ctx context.Context, from *domain.TelegramUser, chatID int64, text string) (*domain.User, error) {
	var referralID *int64
	if IsCommand(text) {
		if command, args := ParseCommand(text); command == "start" && args != "" {
			if id, err := strconv.ParseInt(args, 10, 64); err == nil {
				referralID = &id
			}
		}
	}

	return s.Shop.EnsureUser(ctx, from, chatID, referralID)
}

func (s *Service) sendProfile(ctx context.Context, userID, chatID int64) error {
	profile, err := s.Shop.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	text := fmt.Sprintf(
		"Баланс: %s\nВсего пополнено: %s\nПокупок: %d",
		profile.User.Balance.StringFixed(2),
		profile.TotalToppedUp.StringFixed(2),
		profile.PurchaseCount,
	)
	return s.notify(ctx, chatID, text)
}

func (s *Service) sendHistory(ctx context.Context, userID, chatID int64) error {
	purchases, err := s.Shop.ListPurchases(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list purchases: %w", err)
	}
	if len(purchases) == 0 {
		return s.notify(ctx, chatID, "Покупок пока нет.")
	}

	var sb strings.Builder
	sb.WriteString("Ваши покупки:\n")
	for _, p := range purchases {
		sb.WriteString(fmt.Sprintf("- %s за %s (%s)\n",
			p.ItemName, p.Price.StringFixed(2), p.BoughtAt.Format("02.01.2006")))
	}
	return s.notify(ctx, chatID, sb.String())
}

func (s *Service) startPurchase(ctx context.Context, userID, chatID int64, itemName string) error {
	if itemName == "" {
		return s.notify(ctx, chatID, "Укажите товар: /buy <название>")
	}

	session, err := s.Shop.SelectItem(ctx, userID, itemName)
	if err != nil {
		return s.replyOnBusinessError(ctx, chatID, err)
	}

	text := fmt.Sprintf(
		"%s - %s.\nОтправьте промокод сообщением или подтвердите покупку.",
		session.ItemName, session.Price.StringFixed(2),
	)
	keyboard := map[string]interface{}{
		"inline_keyboard": [][]map[string]interface{}{
			{
				{"text": "Купить", "callback_data": "confirm_purchase"},
			},
		},
	}
	if _, err := s.Telegram.SendMessageWithKeyboard(ctx, chatID, text, keyboard); err != nil {
		return fmt.Errorf("failed to send purchase message: %w", err)
	}
	return nil
}

func (s *Service) confirmPurchase(ctx context.Context, userID, chatID int64) error {
	purchase, err := s.Shop.ConfirmPurchase(ctx, userID)
	if err != nil {
		return s.replyOnBusinessError(ctx, chatID, err)
	}

	return s.notify(ctx, chatID, fmt.Sprintf("Покупка завершена!\n\n%s", purchase.Value))
}

func (s *Service) startTopUp(ctx context.Context, userID, chatID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return s.notify(ctx, chatID, "Укажите сумму: /topup <сумма> [crypto]")
	}

	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return s.notify(ctx, chatID, "Не удалось разобрать сумму.")
	}

	kind := domain.OperationKindFiat
	if len(fields) > 1 && fields[1] == "crypto" {
		kind = domain.OperationKindCrypto
	}

	// сообщение с реквизитами отправляет сам usecase
	if _, _, err := s.Shop.StartTopUp(ctx, userID, chatID, amount, kind); err != nil {
		return s.replyOnBusinessError(ctx, chatID, err)
	}
	return nil
}

func (s *Service) broadcast(ctx context.Context, userID, chatID int64, text string) error {
	if text == "" {
		return s.notify(ctx, chatID, "Укажите текст: /broadcast <текст>")
	}

	delivered, total, err := s.Shop.BroadcastAll(ctx, userID, text)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return s.notify(ctx, chatID, "Неизвестная команда.")
		}
		return fmt.Errorf("broadcast failed: %w", err)
	}

	return s.notify(ctx, chatID, fmt.Sprintf("Рассылка завершена: %d/%d доставлено.", delivered, total))
}

// replyOnBusinessError превращает ожидаемые ошибки бизнес-логики в
// ответ пользователю; остальные ошибки отдаёт наверх
func (s *Service) replyOnBusinessError(ctx context.Context, chatID int64, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.notify(ctx, chatID, "Не найдено. Начните заново с /buy.")
	case errors.Is(err, domain.ErrStockExhausted):
		return s.notify(ctx, chatID, "Товар закончился.")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return s.notify(ctx, chatID, "Недостаточно средств. Пополните баланс: /topup")
	case errors.Is(err, domain.ErrPromoInvalid):
		return s.notify(ctx, chatID, "Промокод недействителен.")
	case errors.Is(err, domain.ErrAmountOutOfRange):
		return s.notify(ctx, chatID, "Недопустимая сумма пополнения.")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return s.notify(ctx, chatID, "Платёжная система недоступна, попробуйте позже.")
	default:
		return err
	}
}

func (s *Service) notify(ctx context.Context, chatID int64, text string) error {
	if _, err := s.Telegram.SendMessage(ctx, chatID, text); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ParseCommand выделяет имя команды и аргументы
func ParseCommand(text string) (string, string) {
	text = strings.TrimPrefix(text, "/")

	command := text
	args := ""
	if idx := strings.Index(text, " "); idx != -1 {
		command = text[:idx]
		args = strings.TrimSpace(text[idx+1:])
	}

	if idx := strings.Index(command, "@"); idx != -1 {
		command = command[:idx]
	}

	return command, args
}

func IsCommand(text string) bool {
	return len(text) > 0 && text[0] == '/'
}
