package repository

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// IStockRepo интерфейс для работы со складом
type IStockRepo interface {
	GetItem(ctx context.Context, name string) (*domain.Item, error)

	// ClaimUnit атомарно резервирует один юнит позиции. Конечный юнит после
	// резервации недоступен другим покупателям, бесконечный возвращается без
	// изъятия из пула. Возвращает domain.ErrStockExhausted, если юнитов нет.
	ClaimUnit(ctx context.Context, itemName string) (*domain.StockUnit, error)

	// ReleaseUnit возвращает конечный юнит в пул (компенсация несостоявшейся продажи)
	ReleaseUnit(ctx context.Context, unitID int64) error

	AvailableCount(ctx context.Context, itemName string) (int64, error)
}
