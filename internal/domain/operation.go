package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationKind тип платёжного шлюза, через который создан инвойс
type OperationKind string

const (
	OperationKindFiat   OperationKind = "fiat"
	OperationKindCrypto OperationKind = "crypto"
)

// OperationStatus статус операции
type OperationStatus string

const (
	OperationStatusPending  OperationStatus = "pending"  // инвойс создан, ожидает оплаты
	OperationStatusFinished OperationStatus = "finished" // оплата прошла, эффект применён
	OperationStatusExpired  OperationStatus = "expired"  // окно оплаты истекло или инвойс отменён
)

// NotifyRef ссылка на сообщение пользователя с инвойсом, по ней редактируется текст
type NotifyRef struct {
	ChatID    int64 `json:"chat_id" db:"chat_id"`
	MessageID int64 `json:"message_id" db:"message_id"`
}

// Operation одно финансовое намерение: пополнение баланса или оплата покупки.
// ID назначается шлюзом при создании инвойса и уникален в рамках registry.
type Operation struct {
	ID        string          `json:"id" db:"operation_id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Kind      OperationKind   `json:"kind" db:"kind"`
	Status    OperationStatus `json:"status" db:"status"`
	Notify    NotifyRef       `json:"notify" db:"-"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// OperationRecord запись в истории завершённых пополнений
type OperationRecord struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
