package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dkovalev/auction-service/internal/models"
	"github.com/dkovalev/auction-service/internal/services"
	"github.com/dkovalev/auction-service/internal/utils"

	"go.uber.org/zap"
)

// UserHandler - структура для обработки HTTP-запросов к пользователям.
type UserHandler struct {
	Service *services.UserService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewUserHandler создает новый экземпляр UserHandler.
func NewUserHandler(service *services.UserService, logger *zap.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

func (h *UserHandler) sendError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Warn("request rejected", zap.Error(err))
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Code, errorResponse.Message)
		return
	}
	h.Logger.Error("request failed", zap.Error(err))
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeBadRequest, fallback)
}

// CreateUser обрабатывает запросы на регистрацию пользователя.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req struct {
		Username string          `json:"username"`
		Role     models.UserRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid request body")
		return
	}

	user, err := h.Service.CreateUser(ctx, req.Username, req.Role)
	if err != nil {
		h.sendError(w, err, "failed to create user")
		return
	}

	if err = utils.SendJSON(w, http.StatusCreated, user); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// GetUser обрабатывает запросы для получения пользователя по имени.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.PathValue("username")

	user, err := h.Service.GetUser(ctx, username)
	if err != nil {
		h.sendError(w, err, "failed to fetch user")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, user); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// CompleteProfile обрабатывает запросы на заполнение анкеты поставщика.
func (h *UserHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.SupplierProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid request body")
		return
	}

	user, err := h.Service.CompleteSupplierProfile(ctx, req)
	if err != nil {
		h.sendError(w, err, "failed to update profile")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, user); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// SetBanned обрабатывает запросы администратора на блокировку пользователя.
func (h *UserHandler) SetBanned(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	targetId := r.PathValue("userId")
	username := r.URL.Query().Get("username")
	banned := r.URL.Query().Get("banned") == "true"

	user, err := h.Service.SetBanned(ctx, username, targetId, banned)
	if err != nil {
		h.sendError(w, err, "failed to update ban state")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, user); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// ListUsers обрабатывает запросы администратора на получение списка пользователей.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.URL.Query().Get("username")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	users, err := h.Service.ListUsers(ctx, username, limitStr, offsetStr)
	if err != nil {
		h.sendError(w, err, "failed to fetch users")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, users); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}
