package operationRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/persistence"
	ports "github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

// pendingRow строка таблицы pending_operations
type pendingRow struct {
	OperationID string          `db:"operation_id"`
	UserID      int64           `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Kind        string          `db:"kind"`
	ChatID      int64           `db:"chat_id"`
	MessageID   int64           `db:"message_id"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (row *pendingRow) toDomain() *domain.Operation {
	return &domain.Operation{
		ID:     row.OperationID,
		UserID: row.UserID,
		Amount: row.Amount,
		Kind:   domain.OperationKind(row.Kind),
		Status: domain.OperationStatusPending,
		Notify: domain.NotifyRef{
			ChatID:    row.ChatID,
			MessageID: row.MessageID,
		},
		CreatedAt: row.CreatedAt,
	}
}

type Registry struct {
	db  persistence.Persistence
	Log *slog.Logger
}

// NewRegistry создаёт durable-реестр незавершённых операций
func NewRegistry(db persistence.Persistence, log *slog.Logger) ports.IOperationRegistry {
	return &Registry{
		db:  db,
		Log: log,
	}
}

// Put регистрирует pending-операцию
func (r *Registry) Put(ctx context.Context, op *domain.Operation) error {
	query := `INSERT INTO pending_operations
		(operation_id, user_id, amount, kind, chat_id, message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	err := r.db.Exec(ctx, query,
		op.ID,
		op.UserID,
		op.Amount,
		string(op.Kind),
		op.Notify.ChatID,
		op.Notify.MessageID,
		op.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateOperation
		}
		r.Log.Error("failed to register operation",
			"error", err,
			"operation_id", op.ID,
			"user_id", op.UserID,
		)
		return fmt.Errorf("failed to register operation: %w", err)
	}

	r.Log.Debug("operation registered",
		"operation_id", op.ID,
		"user_id", op.UserID,
		"amount", op.Amount,
	)
	return nil
}

// Peek возвращает операцию, пока она pending
func (r *Registry) Peek(ctx context.Context, operationID string) (*domain.Operation, error) {
	var row pendingRow

	query := `SELECT operation_id, user_id, amount, kind, chat_id, message_id, created_at
		FROM pending_operations WHERE operation_id = $1`

	err := r.db.Get(ctx, &row, query, operationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.Log.Error("failed to peek operation", "error", err, "operation_id", operationID)
		return nil, fmt.Errorf("failed to peek operation: %w", err)
	}

	return row.toDomain(), nil
}

// Claim атомарно снимает pending-операцию с учёта.
// DELETE ... RETURNING выполняется в БД как одно действие: из двух
// конкурентных претендентов строку получает ровно один, второй видит
// domain.ErrNotFound и ничего не финализирует.
func (r *Registry) Claim(ctx context.Context, operationID string) (*domain.Operation, error) {
	var row pendingRow

	query := `DELETE FROM pending_operations WHERE operation_id = $1
		RETURNING operation_id, user_id, amount, kind, chat_id, message_id, created_at`

	err := r.db.QueryRow(ctx, query, operationID).Scan(
		&row.OperationID,
		&row.UserID,
		&row.Amount,
		&row.Kind,
		&row.ChatID,
		&row.MessageID,
		&row.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.Log.Error("failed to claim operation", "error", err, "operation_id", operationID)
		return nil, fmt.Errorf("failed to claim operation: %w", err)
	}

	r.Log.Debug("operation claimed", "operation_id", operationID)
	return row.toDomain(), nil
}

// Unclaim возвращает снятую, но не разрешённую операцию обратно в pending
func (r *Registry) Unclaim(ctx context.Context, op *domain.Operation) error {
	if err := r.Put(ctx, op); err != nil {
		if errors.Is(err, domain.ErrDuplicateOperation) {
			// кто-то успел перерегистрировать тот же инвойс, оставляем как есть
			return nil
		}
		return fmt.Errorf("failed to unclaim operation: %w", err)
	}

	r.Log.Debug("operation returned to pending", "operation_id", op.ID)
	return nil
}

type History struct {
	db  persistence.Persistence
	Log *slog.Logger
}

// NewHistory создаёт репозиторий истории завершённых операций
func NewHistory(db persistence.Persistence, log *slog.Logger) ports.IOperationHistoryRepo {
	return &History{
		db:  db,
		Log: log,
	}
}

// RecordResult фиксирует терминальный статус операции
func (h *History) RecordResult(ctx context.Context, op *domain.Operation, status domain.OperationStatus) error {
	query := `INSERT INTO operations (operation_id, user_id, amount, kind, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	err := h.db.Exec(ctx, query,
		op.ID,
		op.UserID,
		op.Amount,
		string(op.Kind),
		string(status),
		op.CreatedAt,
	)
	if err != nil {
		h.Log.Error("failed to record operation result",
			"error", err,
			"operation_id", op.ID,
			"status", status,
		)
		return fmt.Errorf("failed to record operation result: %w", err)
	}

	h.Log.Debug("operation result recorded",
		"operation_id", op.ID,
		"status", status,
	)
	return nil
}

// TotalToppedUp сумма всех завершённых пополнений пользователя
func (h *History) TotalToppedUp(ctx context.Context, userID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM operations
		WHERE user_id = $1 AND status = $2`

	var total decimal.Decimal
	err := h.db.Get(ctx, &total, query, userID, string(domain.OperationStatusFinished))
	if err != nil {
		h.Log.Error("failed to sum topped up amount", "error", err, "user_id", userID)
		return decimal.Zero, fmt.Errorf("failed to sum topped up amount: %w", err)
	}

	return total, nil
}
