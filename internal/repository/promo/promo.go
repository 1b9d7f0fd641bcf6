package promoRepo

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
	db  persistence.Persistence
	Log *slog.Logger
}

// New создаёт новый репозиторий для чтения промокодов
func New(db persistence.Persistence, log *slog.Logger) ports.IPromoRepo {
	return &Repository{
		db:  db,
		Log: log,
	}
}

// GetByCode получает промокод по коду
func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var promo domain.PromoCode

	query := `SELECT code, discount_pct, expires_at, active FROM promo_codes WHERE code = $1`

	err := r.db.Get(ctx, &promo, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.Log.Error("failed to get promo code", "error", err, "code", code)
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}

	return &promo, nil
}
