package gateway

import (
	"context"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/shopspring/decimal"
)

// InvoiceStatus статус инвойса на стороне шлюза
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusExpired InvoiceStatus = "expired"
	InvoiceStatusFailed  InvoiceStatus = "failed"
)

// Terminal true для статусов, после которых инвойс больше не изменится
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusExpired || s == InvoiceStatusFailed
}

// Invoice созданный шлюзом счёт на оплату
type Invoice struct {
	ID            string          // id инвойса в системе шлюза, уникален
	PayTarget     string          // payment URL (fiat) или адрес кошелька (crypto)
	DisplayAmount decimal.Decimal // сумма к оплате в валюте шлюза
	Currency      string
}

// IPaymentGateway интерфейс платёжного шлюза.
// Use case зависит только от этого интерфейса, не зная деталей реализации.
type IPaymentGateway interface {
	Kind() domain.OperationKind

	CreateInvoice(ctx context.Context, amount decimal.Decimal, currency string) (*Invoice, error)

	// PollStatus возвращает текущий статус инвойса.
	// Возвращает domain.ErrGatewayUnavailable при временной недоступности шлюза.
	PollStatus(ctx context.Context, invoiceID string) (InvoiceStatus, error)
}
