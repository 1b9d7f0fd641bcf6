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

func TestService_WatchInvoice(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// операция кладётся в реестр напрямую, воркер вызывается синхронно
	// с минимальным окном: фоновый запуск из StartTopUp в тестах не нужен
	setup := func(t *testing.T) (*Service, *testDeps, *domain.Operation) {
		t.Helper()
		svc, deps := newTestService(now)
		svc.Config.PaymentWindow = time.Millisecond
		deps.users.add(&domain.User{TelegramID: 1, ChatID: 100, Balance: decimal.Zero})

		invoice, err := deps.gateway.CreateInvoice(context.Background(), decimal.NewFromInt(200), "RUB")
		if err != nil {
			t.Fatalf("CreateInvoice: %v", err)
		}
		op := &domain.Operation{
			ID:        invoice.ID,
			UserID:    1,
			Amount:    decimal.NewFromInt(200),
			Kind:      domain.OperationKindFiat,
			Status:    domain.OperationStatusPending,
			Notify:    domain.NotifyRef{ChatID: 100, MessageID: 1},
			CreatedAt: now,
		}
		if err := deps.registry.Put(context.Background(), op); err != nil {
			t.Fatalf("Put: %v", err)
		}
		return svc, deps, op
	}

	t.Run("unpaid invoice expires after window", func(t *testing.T) {
		svc, deps, op := setup(t)

		svc.watchInvoice(context.Background(), op.ID, op.Kind)

		if deps.registry.pendingCount() != 0 {
			t.Fatalf("expected operation resolved, %d still pending", deps.registry.pendingCount())
		}
		if statuses := deps.history.statuses(op.ID); len(statuses) == 0 || statuses[len(statuses)-1] != domain.OperationStatusExpired {
			t.Fatalf("expected expired record, got %v", statuses)
		}
		if got := deps.users.balance(1); !got.IsZero() {
			t.Fatalf("expected no credit, got %s", got)
		}
	})

	t.Run("paid invoice finalized by worker", func(t *testing.T) {
		svc, deps, op := setup(t)
		deps.gateway.setStatus(op.ID, gatewayPort.InvoiceStatusPaid)

		svc.watchInvoice(context.Background(), op.ID, op.Kind)

		if got := deps.users.balance(1); !got.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("expected balance 200, got %s", got)
		}
	})

	t.Run("worker yields to earlier resolution", func(t *testing.T) {
		svc, deps, op := setup(t)
		deps.gateway.setStatus(op.ID, gatewayPort.InvoiceStatusPaid)

		if _, err := svc.CheckPayment(context.Background(), 1, op.ID); err != nil {
			t.Fatalf("CheckPayment: %v", err)
		}
		polls := deps.gateway.polls

		svc.watchInvoice(context.Background(), op.ID, op.Kind)

		// проигранный claim: воркер вышел молча, шлюз повторно не опрашивался
		if deps.gateway.polls != polls {
			t.Fatalf("worker polled gateway after losing claim")
		}
		if got := deps.users.balance(1); !got.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("expected single credit of 200, got %s", got)
		}
	})

	t.Run("gateway outage at reconciliation expires operation", func(t *testing.T) {
		svc, deps, op := setup(t)
		deps.gateway.pollErr = errors.New("gateway down")

		svc.watchInvoice(context.Background(), op.ID, op.Kind)

		// воркер не оставляет операцию pending даже при недоступном шлюзе
		if deps.registry.pendingCount() != 0 {
			t.Fatalf("expected operation resolved despite outage")
		}
		if statuses := deps.history.statuses(op.ID); len(statuses) == 0 || statuses[len(statuses)-1] != domain.OperationStatusExpired {
			t.Fatalf("expected expired record, got %v", statuses)
		}
	})

	t.Run("cancelled context before window skips claim", func(t *testing.T) {
		svc, deps, op := setup(t)
		svc.Config.PaymentWindow = time.Minute

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		svc.watchInvoice(ctx, op.ID, op.Kind)

		if _, err := deps.registry.Peek(context.Background(), op.ID); err != nil {
			t.Fatalf("expected operation untouched, got %v", err)
		}
	})
}
