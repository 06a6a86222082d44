package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dkovalev/auction-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoRows возвращается, когда запись не найдена.
var ErrNoRows = pgx.ErrNoRows

// UserRepository - интерфейс для работы с пользователями.
type UserRepository interface {
	CreateUser(ctx context.Context, username string, role models.UserRole) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateSupplierProfile(ctx context.Context, req models.SupplierProfileRequest) (*models.User, error)
	SetBanned(ctx context.Context, id string, banned bool) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
}

// PostgresUserRepository - реализация UserRepository для базы данных.
type PostgresUserRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresUserRepository создает новый экземпляр PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

const userColumns = `id, username, role, banned, created_at,
	COALESCE(org_name, ''), COALESCE(inn, ''), COALESCE(ogrn, ''),
	COALESCE(phone, ''), COALESCE(contact_name, '')`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Role,
		&user.Banned,
		&user.CreatedAt,
		&user.OrgName,
		&user.INN,
		&user.OGRN,
		&user.Phone,
		&user.ContactName,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser создает нового пользователя при первом обращении.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, username string, role models.UserRole) (*models.User, error) {
	newUser := models.User{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	insertQuery := `INSERT INTO users (id, username, role, banned, created_at)
	               VALUES ($1, $2, $3, false, $4)`
	_, err := r.DB.Exec(ctx, insertQuery, newUser.ID, newUser.Username, newUser.Role, newUser.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &newUser, nil
}

// GetByUsername возвращает пользователя по имени.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.DB.QueryRow(ctx, query, username))
}

// GetByID возвращает пользователя по идентификатору.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB.QueryRow(ctx, query, id))
}

// UpdateSupplierProfile заполняет профиль организации поставщика.
func (r *PostgresUserRepository) UpdateSupplierProfile(ctx context.Context, req models.SupplierProfileRequest) (*models.User, error) {
	query := `UPDATE users
	          SET org_name = $1, inn = $2, ogrn = $3, phone = $4, contact_name = $5
	          WHERE username = $6
	          RETURNING ` + userColumns
	return scanUser(r.DB.QueryRow(ctx, query,
		req.OrgName, req.INN, req.OGRN, req.Phone, req.ContactName, req.Username))
}

// SetBanned переключает флаг блокировки пользователя.
func (r *PostgresUserRepository) SetBanned(ctx context.Context, id string, banned bool) (*models.User, error) {
	query := `UPDATE users SET banned = $1 WHERE id = $2 RETURNING ` + userColumns
	return scanUser(r.DB.QueryRow(ctx, query, banned, id))
}

// ListUsers возвращает список пользователей.
func (r *PostgresUserRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// IsNotFound сообщает, означает ли ошибка отсутствие записи.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
