package repository

import (
	"context"
	"time"

	"github.com/dkovalev/auction-service/internal/auction"
	"github.com/dkovalev/auction-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BidRepository - интерфейс для работы с заявками и участниками.
type BidRepository interface {
	PlaceBid(ctx context.Context, tenderID, supplierID string, amount decimal.Decimal, confirmed bool, now time.Time) (*models.Bid, *models.Tender, error)
	ListTenderBids(ctx context.Context, tenderID string) ([]models.Bid, error)
	ListSupplierBids(ctx context.Context, supplierID string, limit, offset int) ([]models.Bid, error)
	AddParticipant(ctx context.Context, tenderID, supplierID string, now time.Time) (*models.TenderParticipant, error)
	ListParticipants(ctx context.Context, tenderID string) ([]models.TenderParticipant, error)
	IsParticipant(ctx context.Context, tenderID, supplierID string) (bool, error)
	HasOpenParticipation(ctx context.Context, supplierID string) (bool, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

// PlaceBid записывает заявку атомарно: строка тендера блокируется на время
// транзакции, правила проверяются заново под блокировкой, заявка и новая
// текущая цена фиксируются одним коммитом. Две конкурирующие заявки не могут
// обе пройти проверку против одной устаревшей цены.
func (r *PostgresBidRepository) PlaceBid(ctx context.Context, tenderID, supplierID string, amount decimal.Decimal, confirmed bool, now time.Time) (*models.Bid, *models.Tender, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	lockQuery := `SELECT ` + tenderColumns + ` FROM tenders WHERE id = $1 FOR UPDATE`
	tender, err := scanTender(tx.QueryRow(ctx, lockQuery, tenderID))
	if err != nil {
		return nil, nil, err
	}

	if err := auction.ValidateBid(tender, amount, confirmed); err != nil {
		return nil, nil, err
	}

	newBid := models.Bid{
		ID:         uuid.New().String(),
		TenderID:   tenderID,
		SupplierID: supplierID,
		Amount:     amount,
		CreatedAt:  now,
	}
	insertQuery := `INSERT INTO bids (id, tender_id, supplier_id, amount, created_at)
	               VALUES ($1, $2, $3, $4, $5)`
	_, err = tx.Exec(ctx, insertQuery, newBid.ID, newBid.TenderID, newBid.SupplierID, newBid.Amount, newBid.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	updateQuery := `UPDATE tenders SET current_price = $1, last_bid_at = $2 WHERE id = $3`
	_, err = tx.Exec(ctx, updateQuery, newBid.Amount, newBid.CreatedAt, tenderID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	tender.CurrentPrice = newBid.Amount
	tender.LastBidAt = &newBid.CreatedAt
	return &newBid, tender, nil
}

// ListTenderBids возвращает заявки тендера в хронологическом порядке.
func (r *PostgresBidRepository) ListTenderBids(ctx context.Context, tenderID string) ([]models.Bid, error) {
	query := `SELECT id, tender_id, supplier_id, amount, created_at
	          FROM bids WHERE tender_id = $1 ORDER BY created_at`
	rows, err := r.DB.Query(ctx, query, tenderID)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

// ListSupplierBids возвращает заявки поставщика.
func (r *PostgresBidRepository) ListSupplierBids(ctx context.Context, supplierID string, limit, offset int) ([]models.Bid, error) {
	query := `SELECT id, tender_id, supplier_id, amount, created_at
	          FROM bids WHERE supplier_id = $1
	          ORDER BY created_at DESC
	          LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, supplierID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectBids(rows)
}

func collectBids(rows pgx.Rows) ([]models.Bid, error) {
	defer rows.Close()
	var bids []models.Bid
	for rows.Next() {
		var bid models.Bid
		if err := rows.Scan(&bid.ID, &bid.TenderID, &bid.SupplierID, &bid.Amount, &bid.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// AddParticipant записывает вступление поставщика в торги по тендеру.
func (r *PostgresBidRepository) AddParticipant(ctx context.Context, tenderID, supplierID string, now time.Time) (*models.TenderParticipant, error) {
	participant := models.TenderParticipant{
		ID:         uuid.New().String(),
		TenderID:   tenderID,
		SupplierID: supplierID,
		JoinedAt:   now,
	}
	insertQuery := `INSERT INTO tender_participants (id, tender_id, supplier_id, joined_at)
	               VALUES ($1, $2, $3, $4)`
	_, err := r.DB.Exec(ctx, insertQuery, participant.ID, participant.TenderID, participant.SupplierID, participant.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// ListParticipants возвращает участников тендера по порядку вступления.
func (r *PostgresBidRepository) ListParticipants(ctx context.Context, tenderID string) ([]models.TenderParticipant, error) {
	query := `SELECT id, tender_id, supplier_id, joined_at
	          FROM tender_participants WHERE tender_id = $1 ORDER BY joined_at`
	rows, err := r.DB.Query(ctx, query, tenderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.TenderParticipant
	for rows.Next() {
		var p models.TenderParticipant
		if err := rows.Scan(&p.ID, &p.TenderID, &p.SupplierID, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// IsParticipant проверяет, участвует ли поставщик в тендере.
func (r *PostgresBidRepository) IsParticipant(ctx context.Context, tenderID, supplierID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tender_participants WHERE tender_id = $1 AND supplier_id = $2)`
	err := r.DB.QueryRow(ctx, query, tenderID, supplierID).Scan(&exists)
	return exists, err
}

// HasOpenParticipation проверяет, участвует ли поставщик в каком-либо
// незавершенном тендере. Политика: одно активное участие на поставщика.
func (r *PostgresBidRepository) HasOpenParticipation(ctx context.Context, supplierID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(
	              SELECT 1 FROM tender_participants p
	              JOIN tenders t ON t.id = p.tender_id
	              WHERE p.supplier_id = $1 AND t.status IN ('active_pending', 'active')
	          )`
	err := r.DB.QueryRow(ctx, query, supplierID).Scan(&exists)
	return exists, err
}
