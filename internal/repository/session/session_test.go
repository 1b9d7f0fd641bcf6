package sessionRepo

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("round trip preserves price precision", func(t *testing.T) {
		store := New(inmemory.NewCache(), testLogger())

		session := &domain.PendingSession{
			UserID:    1,
			ItemName:  "key",
			Price:     decimal.RequireFromString("7.2"),
			PromoCode: "SALE10",
		}
		if err := store.Set(context.Background(), session); err != nil {
			t.Fatalf("Set: %v", err)
		}

		got, err := store.Get(context.Background(), 1)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ItemName != "key" || got.PromoCode != "SALE10" {
			t.Fatalf("session fields lost: %+v", got)
		}
		if !got.Price.Equal(decimal.RequireFromString("7.2")) {
			t.Fatalf("expected price 7.2, got %s", got.Price)
		}
	})

	t.Run("missing session is ErrNotFound", func(t *testing.T) {
		store := New(inmemory.NewCache(), testLogger())

		if _, err := store.Get(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set displaces previous session", func(t *testing.T) {
		store := New(inmemory.NewCache(), testLogger())

		first := &domain.PendingSession{UserID: 1, ItemName: "key", Price: decimal.NewFromInt(100)}
		second := &domain.PendingSession{UserID: 1, ItemName: "account", Price: decimal.NewFromInt(300)}
		if err := store.Set(context.Background(), first); err != nil {
			t.Fatalf("Set first: %v", err)
		}
		if err := store.Set(context.Background(), second); err != nil {
			t.Fatalf("Set second: %v", err)
		}

		got, err := store.Get(context.Background(), 1)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.ItemName != "account" {
			t.Fatalf("expected displaced session, got %s", got.ItemName)
		}
	})

	t.Run("clear removes session", func(t *testing.T) {
		store := New(inmemory.NewCache(), testLogger())

		session := &domain.PendingSession{UserID: 1, ItemName: "key", Price: decimal.NewFromInt(100)}
		if err := store.Set(context.Background(), session); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := store.Clear(context.Background(), 1); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if _, err := store.Get(context.Background(), 1); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after clear, got %v", err)
		}
	})

	t.Run("corrupted payload dropped", func(t *testing.T) {
		cache := inmemory.NewCache()
		store := New(cache, testLogger())

		if err := cache.Set(context.Background(), "session:1", "{not json", 0); err != nil {
			t.Fatalf("Set raw: %v", err)
		}
		if _, err := store.Get(context.Background(), 1); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for corrupted session, got %v", err)
		}
		// битое значение удалено из кэша
		if exists, _ := cache.Exists(context.Background(), "session:1"); exists {
			t.Fatalf("expected corrupted entry removed")
		}
	})
}
