package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item позиция каталога
type Item struct {
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    string          `json:"category" db:"category_name"`
}

// StockUnit один продаваемый экземпляр позиции.
// Конечный юнит продаётся не больше одного раза и после продажи уходит из пула,
// бесконечный (is_infinity) выдаётся любому числу покупателей и не расходуется.
type StockUnit struct {
	ID         int64  `json:"id" db:"id"`
	ItemName   string `json:"item_name" db:"item_name"`
	Value      string `json:"value" db:"value"`
	IsInfinity bool   `json:"is_infinity" db:"is_infinity"`
}

// Purchase запись о состоявшейся продаже
type Purchase struct {
	ID       uuid.UUID       `json:"id" db:"id"`
	BuyerID  int64           `json:"buyer_id" db:"buyer_id"`
	ItemName string          `json:"item_name" db:"item_name"`
	Value    string          `json:"value" db:"value"`
	Price    decimal.Decimal `json:"price" db:"price"`
	BoughtAt time.Time       `json:"bought_at" db:"bought_at"`
}
