package repository

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IPurchaseRepo интерфейс для записей о продажах
type IPurchaseRepo interface {
	Create(ctx context.Context, purchase *domain.Purchase) error
	CountByBuyer(ctx context.Context, buyerID int64) (int64, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Purchase, error)
}
