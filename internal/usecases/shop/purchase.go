package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/google/uuid"
)

// SelectItem начинает оформление покупки: проверяет наличие позиции
// и открывает сессию с её текущей ценой. Новый выбор вытесняет старый.
func (s *Service) SelectItem(ctx context.Context, userID int64, itemName string) (*domain.PendingSession, error) {
	item, err := s.StockRepo.GetItem(ctx, itemName)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	available, err := s.StockRepo.AvailableCount(ctx, itemName)
	if err != nil {
		return nil, fmt.Errorf("failed to count available units: %w", err)
	}
	if available == 0 {
		return nil, domain.ErrStockExhausted
	}

	session := &domain.PendingSession{
		UserID:   userID,
		ItemName: item.Name,
		Price:    item.Price,
	}
	if err := s.Sessions.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// ConfirmPurchase завершает покупку из текущей сессии.
// Порядок фиксирован: резерв юнита, затем списание. Несостоявшееся
// списание компенсируется возвратом конечного юнита в пул, поэтому
// покупатель без средств не сжигает остатки.
func (s *Service) ConfirmPurchase(ctx context.Context, userID int64) (*domain.Purchase, error) {
	session, err := s.Sessions.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.ItemName == "" {
		return nil, domain.ErrNotFound
	}

	// промокод перепроверяется в момент подтверждения:
	// истёкший между вводом и покупкой код отклоняет покупку
	if session.PromoCode != "" {
		promo, err := s.PromoRepo.GetByCode(ctx, session.PromoCode)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to get promo code: %w", err)
		}
		if err != nil || !promo.Valid(s.Clock.Now()) {
			return nil, domain.ErrPromoInvalid
		}
	}

	unit, err := s.StockRepo.ClaimUnit(ctx, session.ItemName)
	if err != nil {
		if errors.Is(err, domain.ErrStockExhausted) {
			return nil, domain.ErrStockExhausted
		}
		return nil, fmt.Errorf("failed to claim stock unit: %w", err)
	}

	if _, err := s.UserRepo.ApplyBalanceDelta(ctx, userID, session.Price.Neg()); err != nil {
		if !unit.IsInfinity {
			if releaseErr := s.StockRepo.ReleaseUnit(ctx, unit.ID); releaseErr != nil {
				s.Log.Error("failed to release stock unit after debit failure",
					"error", releaseErr,
					"unit_id", unit.ID,
					"item", session.ItemName,
				)
			}
		}
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, domain.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}

	purchase := &domain.Purchase{
		ID:       uuid.New(),
		BuyerID:  userID,
		ItemName: session.ItemName,
		Value:    unit.Value,
		Price:    session.Price,
		BoughtAt: s.Clock.Now(),
	}

	if err := s.PurchaseRepo.Create(ctx, purchase); err != nil {
		// деньги списаны и юнит выдан, запись о продаже потеряна -
		// сообщаем владельцу, покупку не откатываем
		s.Log.Error("failed to record purchase",
			"error", err,
			"purchase_id", purchase.ID,
			"buyer_id", userID,
		)
		s.alert(ctx, fmt.Sprintf("Продажа %s пользователю %d не записана в историю: %v",
			session.ItemName, userID, err))
	}

	if err := s.Sessions.Clear(ctx, userID); err != nil {
		s.Log.Warn("failed to clear session", "error", err, "user_id", userID)
	}

	if s.Events != nil {
		if err := s.Events.PublishPurchase(ctx, purchase); err != nil {
			s.Log.Warn("failed to publish purchase event", "error", err, "purchase_id", purchase.ID)
		}
	}

	s.alert(ctx, fmt.Sprintf("Продажа: %s за %s %s, покупатель %d",
		purchase.ItemName, purchase.Price.StringFixed(2), s.Config.Currency, userID))

	s.Log.Info("purchase finished",
		"purchase_id", purchase.ID,
		"buyer_id", userID,
		"item", purchase.ItemName,
		"price", purchase.Price,
	)
	return purchase, nil
}
