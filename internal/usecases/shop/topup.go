package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	gatewayPort "github.com/admin/tg-bots/shop-bot/internal/ports/gateway"
	"github.com/shopspring/decimal"
)

// StartTopUp создаёт инвойс на пополнение баланса, регистрирует операцию
// и запускает отложенную сверку по истечении платёжного окна.
// Сообщение с реквизитами отправляется пользователю до регистрации,
// чтобы сохранить ссылку на него для последующего редактирования.
func (s *Service) StartTopUp(
	ctx context.Context,
	userID int64,
	chatID int64,
	amount decimal.Decimal,
	kind domain.OperationKind,
) (*domain.Operation, *gatewayPort.Invoice, error) {
	if amount.LessThan(s.Config.TopUpMin) || amount.GreaterThan(s.Config.TopUpMax) {
		return nil, nil, fmt.Errorf("%w: %s not in [%s, %s]",
			domain.ErrAmountOutOfRange, amount, s.Config.TopUpMin, s.Config.TopUpMax)
	}

	gw, ok := s.gateway(kind)
	if !ok {
		return nil, nil, fmt.Errorf("no payment gateway for kind %q", kind)
	}

	invoice, err := gw.CreateInvoice(ctx, amount, s.Config.Currency)
	if err != nil {
		s.Log.Error("failed to create invoice",
			"error", err,
			"user_id", userID,
			"kind", kind,
			"amount", amount,
		)
		return nil, nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	text := fmt.Sprintf(
		"Счёт на пополнение %s %s.\nОплата: %s\nСчёт действителен %d мин.",
		amount.StringFixed(2), s.Config.Currency, invoice.PayTarget,
		int(s.Config.PaymentWindow.Minutes()),
	)
	keyboard := invoiceKeyboard(invoice.ID)

	messageID, err := s.Telegram.SendMessageWithKeyboard(ctx, chatID, text, keyboard)
	if err != nil {
		s.Log.Error("failed to send invoice message",
			"error", err,
			"user_id", userID,
			"operation_id", invoice.ID,
		)
		return nil, nil, fmt.Errorf("failed to send invoice message: %w", err)
	}

	op := &domain.Operation{
		ID:     invoice.ID,
		UserID: userID,
		Amount: amount,
		Kind:   kind,
		Status: domain.OperationStatusPending,
		Notify: domain.NotifyRef{
			ChatID:    chatID,
			MessageID: messageID,
		},
		CreatedAt: s.Clock.Now(),
	}

	if err := s.Registry.Put(ctx, op); err != nil {
		return nil, nil, fmt.Errorf("failed to register top-up operation: %w", err)
	}

	// Воркер живёт дольше запроса и не отменяется вместе с ним:
	// его эффект гасится через проигранный claim, а не через контекст.
	go s.watchInvoice(context.WithoutCancel(ctx), op.ID, kind)

	s.Log.Info("top-up invoice created",
		"operation_id", op.ID,
		"user_id", userID,
		"amount", amount,
		"kind", kind,
	)
	return op, invoice, nil
}

// CheckPayment ручная проверка оплаты по кнопке пользователя.
// Возвращает терминальный статус операции либо
// domain.OperationStatusPending, если шлюз ещё не подтвердил оплату
// (операция при этом возвращена в pending).
// domain.ErrNotFound означает, что инвойс не найден или уже разрешён.
func (s *Service) CheckPayment(ctx context.Context, userID int64, operationID string) (domain.OperationStatus, error) {
	op, err := s.Registry.Claim(ctx, operationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// штатный исход: операция уже финализирована другим путём
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to claim operation: %w", err)
	}

	if op.UserID != userID {
		// чужой инвойс возвращаем на место и не раскрываем его существование
		if err := s.Registry.Unclaim(ctx, op); err != nil {
			s.Log.Error("failed to unclaim foreign operation", "error", err, "operation_id", op.ID)
		}
		return "", domain.ErrNotFound
	}

	return s.resolveClaimed(ctx, op, true)
}

// HandleGatewayNotification обрабатывает webhook платёжного шлюза.
// Статус перепроверяется опросом шлюза, телу webhook не доверяем.
func (s *Service) HandleGatewayNotification(ctx context.Context, operationID string) error {
	op, err := s.Registry.Claim(ctx, operationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to claim operation: %w", err)
	}

	if _, err := s.resolveClaimed(ctx, op, true); err != nil && !errors.Is(err, domain.ErrGatewayUnavailable) {
		return err
	}
	return nil
}

// CancelInvoice отменяет неоплаченный инвойс по запросу пользователя.
// Отмена проходит через тот же claim, поэтому гонка с воркером
// или ручной проверкой разрешается в пользу ровно одного из них.
func (s *Service) CancelInvoice(ctx context.Context, userID int64, operationID string) error {
	op, err := s.Registry.Claim(ctx, operationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to claim operation: %w", err)
	}

	if op.UserID != userID {
		if err := s.Registry.Unclaim(ctx, op); err != nil {
			s.Log.Error("failed to unclaim foreign operation", "error", err, "operation_id", op.ID)
		}
		return domain.ErrNotFound
	}

	if err := s.expireOperation(ctx, op, "Счёт отменён."); err != nil {
		return err
	}

	s.Log.Info("invoice cancelled", "operation_id", op.ID, "user_id", userID)
	return nil
}

// resolveClaimed опрашивает шлюз для уже снятой с учёта операции и
// доводит её до терминального состояния. unclaimOnAmbiguous управляет
// поведением при неоднозначном ответе шлюза: ручная проверка и webhook
// возвращают операцию в pending, отложенный воркер - истекает её.
func (s *Service) resolveClaimed(ctx context.Context, op *domain.Operation, unclaimOnAmbiguous bool) (domain.OperationStatus, error) {
	// после окна возвращать операцию в pending некому разрешать:
	// отложенный воркер уже отработал. Неоднозначность истекает.
	if s.Clock.Now().After(op.CreatedAt.Add(s.Config.PaymentWindow)) {
		unclaimOnAmbiguous = false
	}

	gw, ok := s.gateway(op.Kind)
	if !ok {
		// шлюз убрали из конфигурации, пока операция висела
		s.Log.Error("no gateway for claimed operation", "operation_id", op.ID, "kind", op.Kind)
		if err := s.expireOperation(ctx, op, "Счёт истёк."); err != nil {
			return "", err
		}
		return domain.OperationStatusExpired, nil
	}

	status, err := gw.PollStatus(ctx, op.ID)
	if err != nil {
		if unclaimOnAmbiguous {
			if unclaimErr := s.Registry.Unclaim(ctx, op); unclaimErr != nil {
				s.Log.Error("failed to unclaim after gateway error",
					"error", unclaimErr,
					"operation_id", op.ID,
				)
			}
			return "", fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
		// воркер не оставляет операцию в подвешенном состоянии
		s.Log.Warn("gateway unavailable at reconciliation, expiring operation",
			"error", err,
			"operation_id", op.ID,
		)
		if expErr := s.expireOperation(ctx, op, "Счёт истёк."); expErr != nil {
			return "", expErr
		}
		return domain.OperationStatusExpired, nil
	}

	switch {
	case status == gatewayPort.InvoiceStatusPaid:
		if err := s.finalizeTopUp(ctx, op); err != nil {
			return "", err
		}
		return domain.OperationStatusFinished, nil

	case !status.Terminal() && unclaimOnAmbiguous:
		if err := s.Registry.Unclaim(ctx, op); err != nil {
			return "", fmt.Errorf("failed to unclaim pending operation: %w", err)
		}
		return domain.OperationStatusPending, nil

	default:
		// терминальный неуспех либо истёкшее окно при неоплаченном инвойсе
		if err := s.expireOperation(ctx, op, "Счёт истёк, оплата не поступила."); err != nil {
			return "", err
		}
		return domain.OperationStatusExpired, nil
	}
}

// finalizeTopUp применяет эффект оплаченного пополнения.
// Порядок фиксирован: зачисление пользователю, запись в историю,
// затем best-effort реферальная комиссия. Ошибка комиссии не
// откатывает основное зачисление.
func (s *Service) finalizeTopUp(ctx context.Context, op *domain.Operation) error {
	balance, err := s.UserRepo.ApplyBalanceDelta(ctx, op.UserID, op.Amount)
	if err != nil {
		// операция уже снята с учёта, а деньги приняты шлюзом -
		// требуется ручное вмешательство
		s.Log.Error("failed to credit paid top-up",
			"error", err,
			"operation_id", op.ID,
			"user_id", op.UserID,
			"amount", op.Amount,
		)
		s.alert(ctx, fmt.Sprintf("НЕ ЗАЧИСЛЕНО пополнение %s (операция %s, пользователь %d): %v",
			op.Amount, op.ID, op.UserID, err))
		return fmt.Errorf("failed to credit top-up: %w", err)
	}

	if err := s.History.RecordResult(ctx, op, domain.OperationStatusFinished); err != nil {
		s.Log.Error("failed to record finished top-up", "error", err, "operation_id", op.ID)
	}

	s.creditReferrer(ctx, op)

	if err := s.Dispatcher.Edit(ctx, op.Notify, fmt.Sprintf(
		"Оплата получена. Баланс пополнен на %s %s.",
		op.Amount.StringFixed(2), s.Config.Currency,
	)); err != nil {
		s.Log.Warn("failed to update invoice message", "error", err, "operation_id", op.ID)
	}

	if s.Events != nil {
		if err := s.Events.PublishTopUp(ctx, op); err != nil {
			s.Log.Warn("failed to publish top-up event", "error", err, "operation_id", op.ID)
		}
	}

	s.alert(ctx, fmt.Sprintf("Пополнение %s %s, пользователь %d",
		op.Amount.StringFixed(2), s.Config.Currency, op.UserID))

	s.Log.Info("top-up finalized",
		"operation_id", op.ID,
		"user_id", op.UserID,
		"amount", op.Amount,
		"balance", balance,
	)
	return nil
}

// creditReferrer начисляет реферальную комиссию, если у плательщика
// есть пригласивший. Любая ошибка здесь только логируется.
func (s *Service) creditReferrer(ctx context.Context, op *domain.Operation) {
	if s.Config.ReferralPct <= 0 {
		return
	}

	user, err := s.UserRepo.GetByTelegramID(ctx, op.UserID)
	if err != nil {
		s.Log.Warn("failed to load payer for referral commission", "error", err, "user_id", op.UserID)
		return
	}
	if user.ReferralID == nil {
		return
	}

	commission := op.Amount.
		Mul(decimal.NewFromInt(s.Config.ReferralPct)).
		Div(decimal.NewFromInt(100)).
		Round(2)
	if commission.IsZero() {
		return
	}

	if _, err := s.UserRepo.ApplyBalanceDelta(ctx, *user.ReferralID, commission); err != nil {
		s.Log.Warn("failed to credit referral commission",
			"error", err,
			"referrer_id", *user.ReferralID,
			"operation_id", op.ID,
			"commission", commission,
		)
		return
	}

	s.Log.Info("referral commission credited",
		"referrer_id", *user.ReferralID,
		"operation_id", op.ID,
		"commission", commission,
	)
}

// expireOperation фиксирует истечение операции и правит сообщение с инвойсом
func (s *Service) expireOperation(ctx context.Context, op *domain.Operation, userText string) error {
	if err := s.History.RecordResult(ctx, op, domain.OperationStatusExpired); err != nil {
		return fmt.Errorf("failed to record expired operation: %w", err)
	}

	if err := s.Dispatcher.Edit(ctx, op.Notify, userText); err != nil {
		s.Log.Warn("failed to update expired invoice message", "error", err, "operation_id", op.ID)
	}

	return nil
}

func (s *Service) alert(ctx context.Context, message string) {
	if s.Alerter == nil {
		return
	}
	if err := s.Alerter.SendAlert(ctx, message); err != nil {
		s.Log.Warn("failed to send owner alert", "error", err)
	}
}

// invoiceKeyboard inline клавиатура под сообщением с инвойсом
func invoiceKeyboard(operationID string) map[string]interface{} {
	return map[string]interface{}{
		"inline_keyboard": [][]map[string]interface{}{
			{
				{"text": "Проверить оплату", "callback_data": "check_" + operationID},
			},
			{
				{"text": "Отменить", "callback_data": "cancel_" + operationID},
			},
		},
	}
}
