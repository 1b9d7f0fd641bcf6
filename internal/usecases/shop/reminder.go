package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

const reminderText = "Давно не виделись! Загляните в магазин - ассортимент обновился."

// RemindInactiveUsers рассылает напоминание пользователям, не
// проявлявшим активность дольше порога. Отметка last_reminder_sent
// ставится сразу после попытки доставки, поэтому в одном неактивном
// периоде пользователь получает не больше одного напоминания.
func (s *Service) RemindInactiveUsers(ctx context.Context) error {
	now := s.Clock.Now()
	cutoff := now.Add(-s.Config.InactivityThreshold)

	users, err := s.UserRepo.ListInactiveSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list inactive users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	var sent int
	for _, user := range users {
		err := s.Dispatcher.Notify(ctx, user.ChatID, reminderText)
		if err != nil && !errors.Is(err, domain.ErrRecipientBlocked) {
			s.Log.Warn("failed to deliver inactivity reminder",
				"error", err,
				"user_id", user.TelegramID,
			)
			// временный сбой: отметку не ставим, следующий проход повторит
			continue
		}
		if err == nil {
			sent++
		}

		if markErr := s.UserRepo.SetLastReminderSent(ctx, user.TelegramID, now); markErr != nil {
			s.Log.Error("failed to mark reminder sent",
				"error", markErr,
				"user_id", user.TelegramID,
			)
		}
	}

	s.Log.Info("inactivity reminders dispatched",
		"sent", sent,
		"candidates", len(users),
	)
	return nil
}
