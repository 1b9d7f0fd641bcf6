package shop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	gatewayPort "github.com/admin/tg-bots/shop-bot/internal/ports/gateway"
	"github.com/shopspring/decimal"
)

func TestService_EnsureUser(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first contact registers customer", func(t *testing.T) {
		svc, deps := newTestService(now)
		referrer := int64(9)

		user, err := svc.EnsureUser(context.Background(), &domain.TelegramUser{ID: 1, FirstName: "Ann"}, 100, &referrer)
		if err != nil {
			t.Fatalf("EnsureUser: %v", err)
		}
		if user.Role != domain.UserRoleCustomer {
			t.Fatalf("expected customer role, got %s", user.Role)
		}
		if user.ReferralID == nil || *user.ReferralID != 9 {
			t.Fatalf("expected referral 9, got %v", user.ReferralID)
		}
		if _, err := deps.users.GetByTelegramID(context.Background(), 1); err != nil {
			t.Fatalf("expected user persisted, got %v", err)
		}
	})

	t.Run("self referral ignored", func(t *testing.T) {
		svc, _ := newTestService(now)
		self := int64(1)

		user, err := svc.EnsureUser(context.Background(), &domain.TelegramUser{ID: 1}, 100, &self)
		if err != nil {
			t.Fatalf("EnsureUser: %v", err)
		}
		if user.ReferralID != nil {
			t.Fatalf("expected self referral dropped, got %v", *user.ReferralID)
		}
	})

	t.Run("repeat contact touches activity, keeps referral", func(t *testing.T) {
		svc, deps := newTestService(now)
		referrer := int64(9)

		if _, err := svc.EnsureUser(context.Background(), &domain.TelegramUser{ID: 1}, 100, &referrer); err != nil {
			t.Fatalf("first EnsureUser: %v", err)
		}
		// повторный /start с другим deep-link не меняет пригласившего
		other := int64(5)
		user, err := svc.EnsureUser(context.Background(), &domain.TelegramUser{ID: 1}, 100, &other)
		if err != nil {
			t.Fatalf("second EnsureUser: %v", err)
		}
		if user.ReferralID == nil || *user.ReferralID != 9 {
			t.Fatalf("expected original referral kept, got %v", user.ReferralID)
		}

		stored, err := deps.users.GetByTelegramID(context.Background(), 1)
		if err != nil {
			t.Fatalf("GetByTelegramID: %v", err)
		}
		if stored.LastActivityAt == nil || !stored.LastActivityAt.Equal(now) {
			t.Fatalf("expected activity touched at %v, got %v", now, stored.LastActivityAt)
		}
	})
}

func TestService_GetProfile(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc, deps := newTestService(now)
	deps.users.add(&domain.User{TelegramID: 1, ChatID: 100, Balance: decimal.NewFromInt(250)})
	deps.stock.addItem(
		&domain.Item{Name: "key", Price: decimal.NewFromInt(50)},
		domain.StockUnit{Value: "AAAA"},
	)

	// одно завершённое пополнение и одна покупка
	op, _, err := svc.StartTopUp(context.Background(), 1, 100, decimal.NewFromInt(300), domain.OperationKindFiat)
	if err != nil {
		t.Fatalf("StartTopUp: %v", err)
	}
	deps.gateway.setStatus(op.ID, gatewayPort.InvoiceStatusPaid)
	if _, err := svc.CheckPayment(context.Background(), 1, op.ID); err != nil {
		t.Fatalf("CheckPayment: %v", err)
	}
	if _, err := svc.SelectItem(context.Background(), 1, "key"); err != nil {
		t.Fatalf("SelectItem: %v", err)
	}
	if _, err := svc.ConfirmPurchase(context.Background(), 1); err != nil {
		t.Fatalf("ConfirmPurchase: %v", err)
	}

	profile, err := svc.GetProfile(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !profile.User.Balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected balance 500, got %s", profile.User.Balance)
	}
	if !profile.TotalToppedUp.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected total top-ups 300, got %s", profile.TotalToppedUp)
	}
	if profile.PurchaseCount != 1 {
		t.Fatalf("expected 1 purchase, got %d", profile.PurchaseCount)
	}

	if _, err := svc.GetProfile(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestService_BroadcastAll(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("admin reaches every user", func(t *testing.T) {
		svc, deps := newTestService(now)
		deps.users.add(&domain.User{TelegramID: 1, ChatID: 100, Role: domain.UserRoleAdmin})
		deps.users.add(&domain.User{TelegramID: 2, ChatID: 200, Role: domain.UserRoleCustomer})
		deps.users.add(&domain.User{TelegramID: 3, ChatID: 300, Role: domain.UserRoleCustomer})

		delivered, total, err := svc.BroadcastAll(context.Background(), 1, "Новое поступление")
		if err != nil {
			t.Fatalf("BroadcastAll: %v", err)
		}
		if total != 3 || delivered != 3 {
			t.Fatalf("expected 3/3, got %d/%d", delivered, total)
		}
	})

	t.Run("customer denied", func(t *testing.T) {
		svc, deps := newTestService(now)
		deps.users.add(&domain.User{TelegramID: 2, ChatID: 200, Role: domain.UserRoleCustomer})

		if _, _, err := svc.BroadcastAll(context.Background(), 2, "spam"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for customer, got %v", err)
		}
		if got := deps.dispatcher.notifyCount(200); got != 0 {
			t.Fatalf("expected no deliveries, got %d", got)
		}
	})
}
