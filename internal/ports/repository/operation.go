package repository

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// IOperationRegistry durable-реестр незавершённых операций.
// Claim - единственный примитив взаимного исключения при финализации:
// кто успешно снял операцию с учёта, тот и применяет её эффект.
type IOperationRegistry interface {
	// Put регистрирует pending-операцию.
	// Возвращает domain.ErrDuplicateOperation при повторном id.
	Put(ctx context.Context, op *domain.Operation) error

	// Peek возвращает операцию, пока она pending, иначе domain.ErrNotFound
	Peek(ctx context.Context, operationID string) (*domain.Operation, error)

	// Claim атомарно снимает pending-операцию с учёта и возвращает её.
	// Для уже разрешённой операции возвращает domain.ErrNotFound - это
	// штатный исход гонки, а не ошибка.
	Claim(ctx context.Context, operationID string) (*domain.Operation, error)

	// Unclaim возвращает снятую, но не разрешённую операцию обратно в pending.
	// Используется только ручной проверкой при неоднозначном статусе шлюза.
	Unclaim(ctx context.Context, op *domain.Operation) error
}

// IOperationHistoryRepo история завершённых операций
type IOperationHistoryRepo interface {
	// RecordResult фиксирует терминальный статус операции в durable-хранилище
	RecordResult(ctx context.Context, op *domain.Operation, status domain.OperationStatus) error

	// TotalToppedUp сумма всех завершённых пополнений пользователя
	TotalToppedUp(ctx context.Context, userID int64) (decimal.Decimal, error)
}
