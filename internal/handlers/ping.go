package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dkovalev/auction-service/internal/models"
	"github.com/dkovalev/auction-service/internal/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PingHandler проверяет готовность сервиса и соединение с базой данных.
type PingHandler struct {
	Logger  *zap.Logger
	Timeout time.Duration
	dbPool  *pgxpool.Pool
}

// NewPingHandler создает новый экземпляр PingHandler.
func NewPingHandler(logger *zap.Logger, timeout time.Duration, dbPool *pgxpool.Pool) *PingHandler {
	return &PingHandler{
		Logger:  logger,
		Timeout: timeout,
		dbPool:  dbPool,
	}
}

// CheckServer обрабатывает запросы проверки доступности сервиса.
func (h *PingHandler) CheckServer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.CodeBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.dbPool.Ping(ctx); err != nil {
		h.Logger.Error("database ping failed", zap.Error(err))
		utils.SendErrorResponse(w, http.StatusServiceUnavailable, models.CodeConflict, "database is unavailable")
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		h.Logger.Error("response write failed", zap.Error(err))
	}
}
