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

// BidHandler - структура для обработки HTTP-запросов к заявкам.
type BidHandler struct {
	Service *services.BidService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *zap.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

func (h *BidHandler) sendError(w http.ResponseWriter, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		h.Logger.Warn("request rejected", zap.Error(err))
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Code, errorResponse.Message)
		return
	}
	h.Logger.Error("request failed", zap.Error(err))
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.CodeBadRequest, fallback)
}

// JoinTender обрабатывает запросы на участие поставщика в торгах.
func (h *BidHandler) JoinTender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")

	participant, ordinal, err := h.Service.JoinTender(ctx, tenderId, username)
	if err != nil {
		h.sendError(w, err, "failed to join tender")
		return
	}

	resp := map[string]interface{}{
		"participant": participant,
		"ordinal":     ordinal,
	}
	if err = utils.SendJSON(w, http.StatusCreated, resp); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// PlaceBid обрабатывает запросы на подачу заявки.
func (h *BidHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid request body")
		return
	}

	bid, err := h.Service.PlaceBid(ctx, bidReq)
	if err != nil {
		h.sendError(w, err, "failed to place bid")
		return
	}

	if err = utils.SendJSON(w, http.StatusCreated, bid); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// GetMyBids обрабатывает запросы для получения заявок поставщика.
func (h *BidHandler) GetMyBids(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	username := r.URL.Query().Get("username")
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	bids, err := h.Service.GetMyBids(ctx, username, limitStr, offsetStr)
	if err != nil {
		h.sendError(w, err, "failed to fetch bids")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, bids); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}

// GetTenderBids обрабатывает запросы для получения журнала заявок тендера.
func (h *BidHandler) GetTenderBids(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenderId := r.PathValue("tenderId")
	username := r.URL.Query().Get("username")

	bids, err := h.Service.GetTenderBids(ctx, tenderId, username)
	if err != nil {
		h.sendError(w, err, "failed to fetch bids")
		return
	}

	if err = utils.SendJSON(w, http.StatusOK, bids); err != nil {
		h.Logger.Error("response encoding failed", zap.Error(err))
	}
}
