package stockRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"
)

type Repository struct {
	db  persistence.Transactional
	Log *slog.Logger
}

// New создаёт новый репозиторий для работы со складом
func New(db persistence.Transactional, log *slog.Logger) ports.IStockRepo {
	return &Repository{
		db:  db,
		Log: log,
	}
}

// GetItem получает позицию каталога по имени
func (r *Repository) GetItem(ctx context.Context, name string) (*domain.Item, error) {
	var item domain.Item

	query := `SELECT name, description, price, category_name FROM goods WHERE name = $1`

	err := r.db.Get(ctx, &item, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.Log.Error("failed to get item", "error", err, "item", name)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// ClaimUnit атомарно резервирует один юнит позиции.
// Бесконечный юнит выдаётся без изъятия. Конечный резервируется в
// транзакции: SELECT FOR UPDATE SKIP LOCKED выбирает свободный юнит,
// из двух конкурентных покупателей блокировку и флаг claimed получает
// ровно один, второй идёт к следующему юниту либо видит пустой пул.
func (r *Repository) ClaimUnit(ctx context.Context, itemName string) (*domain.StockUnit, error) {
	var unit domain.StockUnit

	infiniteQuery := `SELECT id, item_name, value, is_infinity FROM item_values
		WHERE item_name = $1 AND is_infinity
		LIMIT 1`

	err := r.db.Get(ctx, &unit, infiniteQuery, itemName)
	if err == nil {
		r.Log.Debug("infinite stock unit claimed", "item", itemName, "unit_id", unit.ID)
		return &unit, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		r.Log.Error("failed to look up infinite stock unit", "error", err, "item", itemName)
		return nil, fmt.Errorf("failed to claim stock unit: %w", err)
	}

	err = r.db.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		lockQuery := `SELECT id, item_name, value, is_infinity FROM item_values
			WHERE item_name = $1 AND NOT is_infinity AND NOT claimed
			LIMIT 1
			FOR UPDATE SKIP LOCKED`

		if err := tx.Get(ctx, &unit, lockQuery, itemName); err != nil {
			return err
		}
		return tx.Exec(ctx, `UPDATE item_values SET claimed = TRUE WHERE id = $1`, unit.ID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStockExhausted
		}
		r.Log.Error("failed to claim stock unit", "error", err, "item", itemName)
		return nil, fmt.Errorf("failed to claim stock unit: %w", err)
	}

	r.Log.Debug("stock unit claimed", "item", itemName, "unit_id", unit.ID)
	return &unit, nil
}

// ReleaseUnit возвращает конечный юнит в пул доступных.
// Компенсация: покупка не состоялась, товар не должен пропасть.
func (r *Repository) ReleaseUnit(ctx context.Context, unitID int64) error {
	query := `UPDATE item_values SET claimed = FALSE WHERE id = $1 AND NOT is_infinity`

	if err := r.db.Exec(ctx, query, unitID); err != nil {
		r.Log.Error("failed to release stock unit", "error", err, "unit_id", unitID)
		return fmt.Errorf("failed to release stock unit: %w", err)
	}

	r.Log.Debug("stock unit released", "unit_id", unitID)
	return nil
}

// AvailableCount возвращает число доступных юнитов позиции
func (r *Repository) AvailableCount(ctx context.Context, itemName string) (int64, error) {
	query := `SELECT COUNT(*) FROM item_values
		WHERE item_name = $1 AND (is_infinity OR NOT claimed)`

	var count int64
	if err := r.db.Get(ctx, &count, query, itemName); err != nil {
		r.Log.Error("failed to count stock units", "error", err, "item", itemName)
		return 0, fmt.Errorf("failed to count stock units: %w", err)
	}
	return count, nil
}
