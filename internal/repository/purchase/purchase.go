package purchaseRepo

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"
)

type Repository struct {
	db  persistence.Persistence
	Log *slog.Logger
}

// New создаёт новый репозиторий для записей о продажах
func New(db persistence.Persistence, log *slog.Logger) ports.IPurchaseRepo {
	return &Repository{
		db:  db,
		Log: log,
	}
}

// Create сохраняет запись о продаже. ID - uuid, коллизии исключены
// уникальным ключом на стороне БД.
func (r *Repository) Create(ctx context.Context, purchase *domain.Purchase) error {
	query := `INSERT INTO purchases (id, buyer_id, item_name, value, price, bought_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	err := r.db.Exec(ctx, query,
		purchase.ID,
		purchase.BuyerID,
		purchase.ItemName,
		purchase.Value,
		purchase.Price,
		purchase.BoughtAt,
	)
	if err != nil {
		r.Log.Error("failed to create purchase",
			"error", err,
			"purchase_id", purchase.ID,
			"buyer_id", purchase.BuyerID,
		)
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	r.Log.Debug("purchase recorded",
		"purchase_id", purchase.ID,
		"buyer_id", purchase.BuyerID,
		"item", purchase.ItemName,
	)
	return nil
}

// CountByBuyer возвращает число покупок пользователя
func (r *Repository) CountByBuyer(ctx context.Context, buyerID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM purchases WHERE buyer_id = $1`

	var count int64
	if err := r.db.Get(ctx, &count, query, buyerID); err != nil {
		r.Log.Error("failed to count purchases", "error", err, "buyer_id", buyerID)
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	return count, nil
}

// ListByBuyer возвращает покупки пользователя, новые первыми
func (r *Repository) ListByBuyer(ctx context.Context, buyerID int64) ([]domain.Purchase, error) {
	query := `SELECT id, buyer_id, item_name, value, price, bought_at
		FROM purchases WHERE buyer_id = $1 ORDER BY bought_at DESC`

	var purchases []domain.Purchase
	if err := r.db.Select(ctx, &purchases, query, buyerID); err != nil {
		r.Log.Error("failed to list purchases", "error", err, "buyer_id", buyerID)
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}
