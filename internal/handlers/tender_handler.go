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

// TenderHandler - структура для обработки HTTP-запросов к тендерам.
type TenderHandler struct {
	Service *services.TenderService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewTenderHandler создает новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, logger *zap.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

func (h *TenderHandler) sendError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Warn("request rejected", zap.Error(err))
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Code, errorResponse.Message)
		return
	}
	h.Logger.Error("request failed", zap.Error(err))
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeBadRequest, fallback)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var tenderReq models.TenderRequest
	if err := json.NewDecoder(r.Body).Decode(&tenderReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid request body")
		return
	}

	tender, err := h.Service.CreateTender(ctx, tenderReq)
	if err != nil {
		h.sendError(w, err, "failed to create tender")
		return
	}

	if err = utils.SendJSON(w, http.StatusCreated, tender); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// GetTender обрабатывает запросы для получения тендера по идентификатору.
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")

	tender, err := h.Service.GetTender(ctx, tenderId)
	if err != nil {
		h.sendError(w, err, "failed to fetch tender")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, tender); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// GetUserTenders обрабатывает запросы для получения списка тендеров пользователя.
func (h *TenderHandler) GetUserTenders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.URL.Query().Get("username")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	tenders, err := h.Service.GetUserTenders(ctx, username, limitStr, offsetStr)
	if err != nil {
		h.sendError(w, err, "failed to fetch tenders")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, tenders); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// ListByStatus обрабатывает запросы администратора на список тендеров в
// заданном статусе.
func (h *TenderHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.URL.Query().Get("username")
	status := r.URL.Query().Get("status")

	tenders, err := h.Service.ListTendersByStatus(ctx, username, status)
	if err != nil {
		h.sendError(w, err, "failed to list tenders")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, tenders); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// ApproveTender обрабатывает запросы для одобрения черновика тендера.
func (h *TenderHandler) ApproveTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")

	tender, err := h.Service.ApproveTender(ctx, tenderId, username)
	if err != nil {
		h.sendError(w, err, "failed to approve tender")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, tender); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// CancelTender обрабатывает запросы для отмены тендера.
func (h *TenderHandler) CancelTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")

	tender, err := h.Service.CancelTender(ctx, tenderId, username)
	if err != nil {
		h.sendError(w, err, "failed to cancel tender")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, tender); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// GrantAccess обрабатывает запросы для открытия поставщику доступа к тендеру.
func (h *TenderHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")
	supplierId := r.URL.Query().Get("supplierId")

	access, err := h.Service.GrantAccess(ctx, tenderId, username, supplierId)
	if err != nil {
		h.sendError(w, err, "failed to grant access")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, access); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// RevokeAccess обрабатывает запросы для отзыва доступа поставщика.
func (h *TenderHandler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only DELETE is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")
	supplierId := r.URL.Query().Get("supplierId")

	if err := h.Service.RevokeAccess(ctx, tenderId, username, supplierId); err != nil {
		h.sendError(w, err, "failed to revoke access")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetReport обрабатывает запросы для получения отчета по завершенному тендеру.
func (h *TenderHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")
	detailed := r.URL.Query().Get("detailed") == "true"

	report, err := h.Service.BuildReport(ctx, tenderId, username, detailed)
	if err != nil {
		h.sendError(w, err, "failed to build report")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, map[string]string{"report": report}); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// RunSweep обрабатывает запросы администратора на внеочередную сверку.
func (h *TenderHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.URL.Query().Get("username")

	if err := h.Service.ManualSweep(ctx, username); err != nil {
		h.sendError(w, err, "failed to run sweep")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
