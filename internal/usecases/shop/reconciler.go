package shop

import (
	"context"
	"errors"
	"time"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

// watchInvoice отложенная сверка одного инвойса.
// Спит платёжное окно, затем пытается снять операцию с учёта.
// Проигранный claim означает, что операцию уже разрешили ручной
// проверкой, webhook-ом или отменой - воркер молча выходит.
// Снятую операцию воркер доводит до терминального состояния за один
// опрос шлюза: оплачена - финализирует, иначе истекает. В pending
// после окна операция не остаётся никогда.
func (s *Service) watchInvoice(ctx context.Context, operationID string, kind domain.OperationKind) {
	timer := time.NewTimer(s.Config.PaymentWindow)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return
	}

	op, err := s.Registry.Claim(ctx, operationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Log.Debug("operation already resolved before reconciliation",
				"operation_id", operationID,
			)
			return
		}
		s.Log.Error("reconciliation failed to claim operation",
			"error", err,
			"operation_id", operationID,
		)
		return
	}

	status, err := s.resolveClaimed(ctx, op, false)
	if err != nil {
		s.Log.Error("reconciliation failed to resolve operation",
			"error", err,
			"operation_id", operationID,
		)
		return
	}

	s.Log.Info("operation reconciled",
		"operation_id", operationID,
		"kind", kind,
		"status", status,
	)
}
