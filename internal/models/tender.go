package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TenderStatus string // Статус тендера

const (
	DraftTender         TenderStatus = "draft"          // Тендер создан, ждет одобрения
	ActivePendingTender TenderStatus = "active_pending" // Тендер одобрен, ждет времени начала
	ActiveTender        TenderStatus = "active"         // Аукцион идет, принимаются заявки
	ClosedTender        TenderStatus = "closed"         // Аукцион завершен
	CancelledTender     TenderStatus = "cancelled"      // Тендер отменен
)

// IsTerminal сообщает, является ли статус конечным.
func (s TenderStatus) IsTerminal() bool {
	return s == ClosedTender || s == CancelledTender
}

// IsBiddable сообщает, принимает ли тендер заявки.
func (s TenderStatus) IsBiddable() bool {
	return s == ActiveTender
}

// Tender представляет модель тендера (аукцион на понижение цены).
type Tender struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	StartPrice     decimal.Decimal `json:"startPrice"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	MinBidDecrease decimal.Decimal `json:"minBidDecrease"`
	StartAt        time.Time       `json:"startAt"`
	Status         TenderStatus    `json:"status"`
	ConditionsPath string          `json:"conditionsPath,omitempty"`
	OrganizerID    string          `json:"organizerId"`
	LastBidAt      *time.Time      `json:"lastBidAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// TenderRequest представляет структуру запроса для создания тендера.
type TenderRequest struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	StartPrice     decimal.Decimal `json:"startPrice"`
	MinBidDecrease decimal.Decimal `json:"minBidDecrease"`
	StartAt        time.Time       `json:"startAt"`
	ConditionsPath string          `json:"conditionsPath,omitempty"`
	Username       string          `json:"username"`
}

// TenderAccess - разрешение поставщику видеть тендер и участвовать в нем.
type TenderAccess struct {
	ID         string    `json:"id"`
	TenderID   string    `json:"tenderId"`
	SupplierID string    `json:"supplierId"`
	GrantedAt  time.Time `json:"grantedAt"`
}

// TenderParticipant - факт участия поставщика в конкретном тендере.
// Порядковый номер участника (по времени вступления) служит анонимным именем.
type TenderParticipant struct {
	ID         string    `json:"id"`
	TenderID   string    `json:"tenderId"`
	SupplierID string    `json:"supplierId"`
	JoinedAt   time.Time `json:"joinedAt"`
}
