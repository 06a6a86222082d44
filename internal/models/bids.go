package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid представляет заявку поставщика на снижение цены.
// Записи неизменяемы; хронология заявок по тендеру - авторитетная история торгов.
type Bid struct {
	ID         string          `json:"id"`
	TenderID   string          `json:"tenderId"`
	SupplierID string          `json:"supplierId"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// BidRequest представляет структуру запроса для подачи заявки.
type BidRequest struct {
	TenderID string          `json:"tenderId"`
	Username string          `json:"username"`
	Amount   decimal.Decimal `json:"amount"`
}
