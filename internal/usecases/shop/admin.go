package shop

import (
	"context"
	"fmt"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// BroadcastAll рассылает текст всем пользователям магазина.
// Доступно только админам и владельцу. Возвращает число доставленных
// и общее число получателей; отдельные сбои доставки batch не прерывают.
func (s *Service) BroadcastAll(ctx context.Context, initiatorID int64, text string) (delivered int64, total int64, err error) {
	initiator, err := s.UserRepo.GetByTelegramID(ctx, initiatorID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get initiator: %w", err)
	}
	if initiator.Role != domain.UserRoleAdmin && initiator.Role != domain.UserRoleOwner {
		return 0, 0, domain.ErrNotFound
	}

	chatIDs, err := s.UserRepo.GetAllChatIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list recipients: %w", err)
	}

	delivered, err = s.Dispatcher.Broadcast(ctx, chatIDs, text)
	if err != nil {
		return delivered, int64(len(chatIDs)), fmt.Errorf("broadcast interrupted: %w", err)
	}

	s.Log.Info("broadcast finished",
		"initiator_id", initiatorID,
		"delivered", delivered,
		"total", len(chatIDs),
	)
	return delivered, int64(len(chatIDs)), nil
}
