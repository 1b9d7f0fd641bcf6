package shop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

func TestService_ApplyPromo(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T, price int64) (*Service, *testDeps) {
		t.Helper()
		svc, deps := newTestService(now)
		deps.stock.addItem(
			&domain.Item{Name: "key", Price: decimal.NewFromInt(price)},
			domain.StockUnit{Value: "AAAA"},
		)
		if _, err := svc.SelectItem(context.Background(), 1, "key"); err != nil {
			t.Fatalf("SelectItem: %v", err)
		}
		return svc, deps
	}

	t.Run("discount rounds to kopecks", func(t *testing.T) {
		svc, deps := setup(t, 10)
		deps.promos.add(&domain.PromoCode{Code: "SALE20", DiscountPct: 20, Active: true})

		price, err := svc.ApplyPromo(context.Background(), 1, "SALE20")
		if err != nil {
			t.Fatalf("ApplyPromo: %v", err)
		}
		if !price.Equal(decimal.RequireFromString("8")) {
			t.Fatalf("expected price 8, got %s", price)
		}
	})

	t.Run("second code rediscounts current price", func(t *testing.T) {
		svc, deps := setup(t, 10)
		deps.promos.add(&domain.PromoCode{Code: "SALE20", DiscountPct: 20, Active: true})
		deps.promos.add(&domain.PromoCode{Code: "SALE10", DiscountPct: 10, Active: true})

		if _, err := svc.ApplyPromo(context.Background(), 1, "SALE20"); err != nil {
			t.Fatalf("first ApplyPromo: %v", err)
		}
		price, err := svc.ApplyPromo(context.Background(), 1, "SALE10")
		if err != nil {
			t.Fatalf("second ApplyPromo: %v", err)
		}
		// 10 -> 8 -> 7.2: скидки не складываются от исходной цены
		if !price.Equal(decimal.RequireFromString("7.2")) {
			t.Fatalf("expected price 7.2, got %s", price)
		}
	})

	t.Run("unknown code keeps session price", func(t *testing.T) {
		svc, deps := setup(t, 10)

		price, err := svc.ApplyPromo(context.Background(), 1, "NOPE")
		if !errors.Is(err, domain.ErrPromoInvalid) {
			t.Fatalf("expected ErrPromoInvalid, got %v", err)
		}
		if !price.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("expected original price in response, got %s", price)
		}
		session, err := deps.sessions.Get(context.Background(), 1)
		if err != nil {
			t.Fatalf("Get session: %v", err)
		}
		if !session.Price.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("session price changed: %s", session.Price)
		}
	})

	t.Run("expired code rejected", func(t *testing.T) {
		svc, deps := setup(t, 10)
		past := now.Add(-time.Hour)
		deps.promos.add(&domain.PromoCode{Code: "OLD", DiscountPct: 50, Active: true, ExpiresAt: &past})

		if _, err := svc.ApplyPromo(context.Background(), 1, "OLD"); !errors.Is(err, domain.ErrPromoInvalid) {
			t.Fatalf("expected ErrPromoInvalid, got %v", err)
		}
	})

	t.Run("inactive code rejected", func(t *testing.T) {
		svc, deps := setup(t, 10)
		deps.promos.add(&domain.PromoCode{Code: "OFF", DiscountPct: 50, Active: false})

		if _, err := svc.ApplyPromo(context.Background(), 1, "OFF"); !errors.Is(err, domain.ErrPromoInvalid) {
			t.Fatalf("expected ErrPromoInvalid, got %v", err)
		}
	})

	t.Run("no session rejects promo", func(t *testing.T) {
		svc, deps := newTestService(now)
		deps.promos.add(&domain.PromoCode{Code: "SALE20", DiscountPct: 20, Active: true})

		if _, err := svc.ApplyPromo(context.Background(), 1, "SALE20"); err == nil {
			t.Fatalf("expected error without open session")
		}
	})
}
