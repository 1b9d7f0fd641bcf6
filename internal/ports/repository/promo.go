package repository

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IPromoRepo интерфейс для чтения промокодов (создаются админкой)
type IPromoRepo interface {
	// GetByCode возвращает domain.ErrNotFound, если кода нет
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
}
