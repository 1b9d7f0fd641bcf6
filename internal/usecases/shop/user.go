package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// EnsureUser регистрирует пользователя при первом обращении и отмечает
// активность при каждом. referralID берётся из deep-link параметра
// /start и фиксируется только при регистрации, самоприглашение
// игнорируется.
func (s *Service) EnsureUser(ctx context.Context, tgUser *domain.TelegramUser, chatID int64, referralID *int64) (*domain.User, error) {
	now := s.Clock.Now()

	user, err := s.UserRepo.GetByTelegramID(ctx, tgUser.ID)
	if err == nil {
		if touchErr := s.UserRepo.TouchActivity(ctx, user.TelegramID, now); touchErr != nil {
			s.Log.Warn("failed to touch user activity", "error", touchErr, "user_id", user.TelegramID)
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if referralID != nil && *referralID == tgUser.ID {
		referralID = nil
	}

	user = &domain.User{
		TelegramID:   tgUser.ID,
		ChatID:       chatID,
		Username:     tgUser.Username,
		Balance:      decimal.Zero,
		ReferralID:   referralID,
		Role:         domain.UserRoleCustomer,
		Language:     tgUser.LanguageCode,
		RegisteredAt: now,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.Log.Info("user registered",
		"user_id", user.TelegramID,
		"referral_id", referralID,
	)
	return user, nil
}

// Profile сводка по пользователю для экрана профиля
type Profile struct {
	User          *domain.User
	TotalToppedUp decimal.Decimal
	PurchaseCount int64
}

// GetProfile собирает профиль: баланс, сумма пополнений, число покупок
func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.UserRepo.GetByTelegramID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	total, err := s.History.TotalToppedUp(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum top-ups: %w", err)
	}

	count, err := s.PurchaseRepo.CountByBuyer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}

	return &Profile{
		User:          user,
		TotalToppedUp: total,
		PurchaseCount: count,
	}, nil
}

// ListPurchases история покупок пользователя
func (s *Service) ListPurchases(ctx context.Context, userID int64) ([]domain.Purchase, error) {
	purchases, err := s.PurchaseRepo.ListByBuyer(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}
