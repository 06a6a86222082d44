package repository

import (
	"context"
	"time"

	"github.com/dkovalev/auction-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenderRepository - интерфейс для работы с тендерами и доступом к ним.
type TenderRepository interface {
	CreateTender(ctx context.Context, req models.TenderRequest, organizerID string) (*models.Tender, error)
	GetTender(ctx context.Context, tenderID string) (*models.Tender, error)
	GetOrganizerTenders(ctx context.Context, organizerID string, limit, offset int) ([]models.Tender, error)
	ListByStatus(ctx context.Context, status models.TenderStatus) ([]models.Tender, error)
	ListAccessible(ctx context.Context, supplierID string) ([]models.Tender, error)
	UpdateStatus(ctx context.Context, tenderID string, status models.TenderStatus) (*models.Tender, error)
	ActivateDue(ctx context.Context, now time.Time) ([]models.Tender, error)
	CloseIfActive(ctx context.Context, tenderID string, cutoff time.Time) (*models.Tender, bool, error)
	ListStaleActive(ctx context.Context, cutoff time.Time) ([]models.Tender, error)
	GrantAccess(ctx context.Context, tenderID, supplierID string) (*models.TenderAccess, error)
	RevokeAccess(ctx context.Context, tenderID, supplierID string) error
	HasAccess(ctx context.Context, tenderID, supplierID string) (bool, error)
}

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresTenderRepository создает новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db *pgxpool.Pool) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

const tenderColumns = `id, title, description, start_price, current_price, min_bid_decrease,
	start_at, status, COALESCE(conditions_path, ''), organizer_id, last_bid_at, created_at`

func scanTender(row pgx.Row) (*models.Tender, error) {
	var tender models.Tender
	err := row.Scan(
		&tender.ID,
		&tender.Title,
		&tender.Description,
		&tender.StartPrice,
		&tender.CurrentPrice,
		&tender.MinBidDecrease,
		&tender.StartAt,
		&tender.Status,
		&tender.ConditionsPath,
		&tender.OrganizerID,
		&tender.LastBidAt,
		&tender.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tender, nil
}

func collectTenders(rows pgx.Rows) ([]models.Tender, error) {
	defer rows.Close()
	var tenders []models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *tender)
	}
	return tenders, rows.Err()
}

// CreateTender создает новый тендер в статусе draft.
func (r *PostgresTenderRepository) CreateTender(ctx context.Context, req models.TenderRequest, organizerID string) (*models.Tender, error) {
	newTender := models.Tender{
		ID:             uuid.New().String(),
		Title:          req.Title,
		Description:    req.Description,
		StartPrice:     req.StartPrice,
		CurrentPrice:   req.StartPrice,
		MinBidDecrease: req.MinBidDecrease,
		StartAt:        req.StartAt,
		Status:         models.DraftTender,
		ConditionsPath: req.ConditionsPath,
		OrganizerID:    organizerID,
		CreatedAt:      time.Now().UTC(),
	}
	insertQuery := `INSERT INTO tenders (id, title, description, start_price, current_price, min_bid_decrease,
	                                    start_at, status, conditions_path, organizer_id, created_at)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		newTender.ID,
		newTender.Title,
		newTender.Description,
		newTender.StartPrice,
		newTender.CurrentPrice,
		newTender.MinBidDecrease,
		newTender.StartAt,
		newTender.Status,
		newTender.ConditionsPath,
		newTender.OrganizerID,
		newTender.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &newTender, nil
}

// GetTender возвращает тендер по идентификатору.
func (r *PostgresTenderRepository) GetTender(ctx context.Context, tenderID string) (*models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE id = $1`
	return scanTender(r.DB.QueryRow(ctx, query, tenderID))
}

// GetOrganizerTenders возвращает тендеры организатора.
func (r *PostgresTenderRepository) GetOrganizerTenders(ctx context.Context, organizerID string, limit, offset int) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders
	          WHERE organizer_id = $1
	          ORDER BY created_at DESC
	          LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, organizerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectTenders(rows)
}

// ListByStatus возвращает тендеры в заданном статусе.
func (r *PostgresTenderRepository) ListByStatus(ctx context.Context, status models.TenderStatus) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders WHERE status = $1 ORDER BY start_at`
	rows, err := r.DB.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	return collectTenders(rows)
}

// ListAccessible возвращает открытые для поставщика тендеры (allowlist).
func (r *PostgresTenderRepository) ListAccessible(ctx context.Context, supplierID string) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders t
	          WHERE t.status IN ('active_pending', 'active')
	          AND EXISTS (
	              SELECT 1 FROM tender_access a
	              WHERE a.tender_id = t.id AND a.supplier_id = $1
	          )
	          ORDER BY t.start_at`
	rows, err := r.DB.Query(ctx, query, supplierID)
	if err != nil {
		return nil, err
	}
	return collectTenders(rows)
}

// UpdateStatus меняет статус тендера.
func (r *PostgresTenderRepository) UpdateStatus(ctx context.Context, tenderID string, status models.TenderStatus) (*models.Tender, error) {
	query := `UPDATE tenders SET status = $1 WHERE id = $2 RETURNING ` + tenderColumns
	return scanTender(r.DB.QueryRow(ctx, query, status, tenderID))
}

// ActivateDue атомарно активирует тендеры, чье время начала наступило,
// и сбрасывает текущую цену к стартовой.
func (r *PostgresTenderRepository) ActivateDue(ctx context.Context, now time.Time) ([]models.Tender, error) {
	query := `UPDATE tenders
	          SET status = 'active', current_price = start_price
	          WHERE status = 'active_pending' AND start_at <= $1
	          RETURNING ` + tenderColumns
	rows, err := r.DB.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	return collectTenders(rows)
}

// CloseIfActive атомарно закрывает тендер, если он все еще активен и с
// момента последней заявки прошло не меньше окна бездействия. Проверка
// last_bid_at выполняется тем же UPDATE, что и закрытие: заявка,
// закоммитившаяся после снимка вызывающей стороны, отменит закрытие.
// Повторное закрытие - no-op: второй вызов вернет closed=false.
func (r *PostgresTenderRepository) CloseIfActive(ctx context.Context, tenderID string, cutoff time.Time) (*models.Tender, bool, error) {
	query := `UPDATE tenders SET status = 'closed'
	          WHERE id = $1 AND status = 'active'
	          AND (last_bid_at IS NULL OR last_bid_at <= $2)
	          RETURNING ` + tenderColumns
	tender, err := scanTender(r.DB.QueryRow(ctx, query, tenderID, cutoff))
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return tender, true, nil
}

// ListStaleActive возвращает активные тендеры без заявок дольше порога
// (время отсчитывается от последней заявки либо от начала торгов).
func (r *PostgresTenderRepository) ListStaleActive(ctx context.Context, cutoff time.Time) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders
	          WHERE status = 'active' AND COALESCE(last_bid_at, start_at) <= $1`
	rows, err := r.DB.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	return collectTenders(rows)
}

// GrantAccess открывает поставщику доступ к тендеру.
func (r *PostgresTenderRepository) GrantAccess(ctx context.Context, tenderID, supplierID string) (*models.TenderAccess, error) {
	access := models.TenderAccess{
		ID:         uuid.New().String(),
		TenderID:   tenderID,
		SupplierID: supplierID,
		GrantedAt:  time.Now().UTC(),
	}
	insertQuery := `INSERT INTO tender_access (id, tender_id, supplier_id, granted_at)
	               VALUES ($1, $2, $3, $4)
	               ON CONFLICT (tender_id, supplier_id) DO NOTHING`
	_, err := r.DB.Exec(ctx, insertQuery, access.ID, access.TenderID, access.SupplierID, access.GrantedAt)
	if err != nil {
		return nil, err
	}
	return &access, nil
}

// RevokeAccess отзывает доступ поставщика к тендеру.
func (r *PostgresTenderRepository) RevokeAccess(ctx context.Context, tenderID, supplierID string) error {
	query := `DELETE FROM tender_access WHERE tender_id = $1 AND supplier_id = $2`
	_, err := r.DB.Exec(ctx, query, tenderID, supplierID)
	return err
}

// HasAccess проверяет, открыт ли поставщику доступ к тендеру.
func (r *PostgresTenderRepository) HasAccess(ctx context.Context, tenderID, supplierID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tender_access WHERE tender_id = $1 AND supplier_id = $2)`
	err := r.DB.QueryRow(ctx, query, tenderID, supplierID).Scan(&exists)
	return exists, err
}
