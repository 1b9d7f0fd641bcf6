package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ApplyPromo применяет промокод к текущей цене сессии.
// Скидка считается от ТЕКУЩЕЙ цены сессии, а не от исходной цены
// позиции: второй код пересчитывает уже сниженную цену, коды
// не складываются от оригинала.
func (s *Service) ApplyPromo(ctx context.Context, userID int64, code string) (decimal.Decimal, error) {
	session, err := s.Sessions.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get session: %w", err)
	}
	if session.ItemName == "" {
		return decimal.Zero, domain.ErrNotFound
	}

	promo, err := s.PromoRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return session.Price, domain.ErrPromoInvalid
		}
		return decimal.Zero, fmt.Errorf("failed to get promo code: %w", err)
	}
	if !promo.Valid(s.Clock.Now()) {
		return session.Price, domain.ErrPromoInvalid
	}

	newPrice := session.Price.
		Mul(hundred.Sub(decimal.NewFromInt(promo.DiscountPct))).
		Div(hundred).
		Round(2)

	session.Price = newPrice
	session.PromoCode = promo.Code
	if err := s.Sessions.Set(ctx, session); err != nil {
		return decimal.Zero, fmt.Errorf("failed to save session: %w", err)
	}

	s.Log.Debug("promo applied",
		"user_id", userID,
		"code", promo.Code,
		"discount_pct", promo.DiscountPct,
		"new_price", newPrice,
	)
	return newPrice, nil
}
