package services

import (
	"context"
	"net/http"

	"github.com/dkovalev/auction-service/internal/models"
	"github.com/dkovalev/auction-service/internal/repository"
	"github.com/dkovalev/auction-service/internal/utils"

	"go.uber.org/zap"
)

// UserService управляет учетными записями: регистрация, анкета поставщика,
// блокировка.
type UserService struct {
	Repo   repository.UserRepository
	logger *zap.Logger
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(repo repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{Repo: repo, logger: logger}
}

// CreateUser регистрирует нового пользователя с заданной ролью.
func (s *UserService) CreateUser(ctx context.Context, username string, role models.UserRole) (*models.User, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "username is required")
	}
	switch role {
	case models.AdminRole, models.OrganizerRole, models.SupplierRole:
	default:
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "unknown role")
	}

	if _, err := s.Repo.GetByUsername(ctx, username); err == nil {
		return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "username is already taken")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	user, err := s.Repo.CreateUser(ctx, username, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user, nil
}

// GetUser возвращает пользователя по имени.
func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

// CompleteSupplierProfile заполняет анкету поставщика. До заполнения анкеты
// поставщик не допускается к торгам. ИНН содержит 10 или 12 цифр,
// ОГРН 13 или 15.
func (s *UserService) CompleteSupplierProfile(ctx context.Context, req models.SupplierProfileRequest) (*models.User, error) {
	if req.OrgName == "" || req.ContactName == "" || req.Phone == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "missing required profile fields")
	}
	if !utils.IsDigits(req.INN, 10, 12) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "INN must contain 10 or 12 digits")
	}
	if !utils.IsDigits(req.OGRN, 13, 15) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "OGRN must contain 13 or 15 digits")
	}

	user, err := s.Repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "user not found")
		}
		return nil, err
	}
	if user.Role != models.SupplierRole {
		return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "profile is only available for suppliers")
	}
	if user.Banned {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "user is banned")
	}

	updated, err := s.Repo.UpdateSupplierProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("supplier profile completed", zap.String("user_id", updated.ID))
	return updated, nil
}

// SetBanned включает или снимает блокировку пользователя. Доступно только
// администратору; администратора заблокировать нельзя.
func (s *UserService) SetBanned(ctx context.Context, actorUsername, targetID string, banned bool) (*models.User, error) {
	actor, err := s.Repo.GetByUsername(ctx, actorUsername)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusUnauthorized, models.CodeUnauthorized, "user does not exist")
		}
		return nil, err
	}
	if actor.Role != models.AdminRole {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "only admins can ban users")
	}

	target, err := s.Repo.GetByID(ctx, targetID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "user not found")
		}
		return nil, err
	}
	if target.Role == models.AdminRole {
		return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "admins cannot be banned")
	}

	updated, err := s.Repo.SetBanned(ctx, targetID, banned)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user ban state changed",
		zap.String("user_id", targetID),
		zap.Bool("banned", banned))
	return updated, nil
}

// ListUsers возвращает список пользователей. Доступно только администратору.
func (s *UserService) ListUsers(ctx context.Context, actorUsername, limitStr, offsetStr string) ([]models.User, error) {
	actor, err := s.Repo.GetByUsername(ctx, actorUsername)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusUnauthorized, models.CodeUnauthorized, "user does not exist")
		}
		return nil, err
	}
	if actor.Role != models.AdminRole {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "only admins can list users")
	}

	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, err.Error())
	}
	return s.Repo.ListUsers(ctx, limit, offset)
}
