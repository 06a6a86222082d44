package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkovalev/auction-service/internal/metrics"
	"github.com/dkovalev/auction-service/internal/models"
	"github.com/dkovalev/auction-service/internal/notifier"
	"github.com/dkovalev/auction-service/internal/repository"
	"github.com/dkovalev/auction-service/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ConfirmationWindow задает срок жизни запроса подтверждения резкого
// снижения цены. Повторная заявка с той же суммой внутри окна считается
// подтвержденной.
const ConfirmationWindow = 5 * time.Minute

type pendingConfirmation struct {
	amount    decimal.Decimal
	expiresAt time.Time
}

// BidService обрабатывает участие поставщиков в торгах и прием заявок.
type BidService struct {
	Repo    repository.BidRepository
	Tenders repository.TenderRepository
	Users   repository.UserRepository

	timer    *AuctionTimer
	reports  *ReportService
	notifier notifier.Notifier
	clock    Clock
	logger   *zap.Logger
	metrics  *metrics.AuctionMetrics
	limiter  *rate.Limiter

	mu      sync.Mutex
	pending map[string]pendingConfirmation // ключ: tenderID + "/" + supplierID
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(
	repo repository.BidRepository,
	tenders repository.TenderRepository,
	users repository.UserRepository,
	timer *AuctionTimer,
	reports *ReportService,
	n notifier.Notifier,
	clock Clock,
	logger *zap.Logger,
	m *metrics.AuctionMetrics,
	limiter *rate.Limiter,
) *BidService {
	return &BidService{
		Repo:     repo,
		Tenders:  tenders,
		Users:    users,
		timer:    timer,
		reports:  reports,
		notifier: n,
		clock:    clock,
		logger:   logger,
		metrics:  m,
		limiter:  limiter,
		pending:  make(map[string]pendingConfirmation),
	}
}

func (s *BidService) getSupplier(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "username is required")
	}
	user, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusUnauthorized, models.CodeUnauthorized, "user does not exist")
		}
		return nil, err
	}
	if user.Banned {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "user is banned")
	}
	if user.Role != models.SupplierRole {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "only suppliers can participate in tenders")
	}
	if !user.IsRegistered() {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "supplier profile is not completed")
	}
	return user, nil
}

// JoinTender присоединяет поставщика к торгам. Требуется открытый доступ,
// тендер в статусе active_pending или active и отсутствие участия в другом
// незавершенном тендере. Возвращает порядковый номер участника.
func (s *BidService) JoinTender(ctx context.Context, tenderID, username string) (*models.TenderParticipant, int, error) {
	supplier, err := s.getSupplier(ctx, username)
	if err != nil {
		return nil, 0, err
	}

	tender, err := s.Tenders.GetTender(ctx, tenderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, 0, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "tender not found")
		}
		return nil, 0, err
	}
	if tender.Status != models.ActivePendingTender && tender.Status != models.ActiveTender {
		return nil, 0, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "tender is not open for participation")
	}

	hasAccess, err := s.Tenders.HasAccess(ctx, tenderID, supplier.ID)
	if err != nil {
		return nil, 0, err
	}
	if !hasAccess {
		return nil, 0, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "you do not have access to this tender")
	}

	already, err := s.Repo.IsParticipant(ctx, tenderID, supplier.ID)
	if err != nil {
		return nil, 0, err
	}
	if already {
		return nil, 0, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "you already participate in this tender")
	}

	busy, err := s.Repo.HasOpenParticipation(ctx, supplier.ID)
	if err != nil {
		return nil, 0, err
	}
	if busy {
		return nil, 0, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "you already participate in another open tender")
	}

	participant, err := s.Repo.AddParticipant(ctx, tenderID, supplier.ID, s.clock.Now())
	if err != nil {
		return nil, 0, err
	}

	participants, err := s.Repo.ListParticipants(ctx, tenderID)
	if err != nil {
		return participant, 0, nil
	}
	ordinal := len(participants)
	for i := range participants {
		if participants[i].SupplierID == supplier.ID {
			ordinal = i + 1
			break
		}
	}

	s.logger.Info("supplier joined tender",
		zap.String("tender_id", tenderID),
		zap.String("supplier_id", supplier.ID),
		zap.Int("ordinal", ordinal))
	return participant, ordinal, nil
}

// PlaceBid принимает заявку поставщика. Проверка правил и запись выполняются
// атомарно под блокировкой строки тендера; снижение цены более чем на 10%
// от стартовой требует повторной подачи той же суммы для подтверждения.
// Принятая заявка перезапускает таймер закрытия.
func (s *BidService) PlaceBid(ctx context.Context, req models.BidRequest) (*models.Bid, error) {
	if !s.limiter.Allow() {
		s.metrics.BidsRejected.WithLabelValues(models.CodeTooManyRequests).Inc()
		return nil, models.NewErrorResponse(http.StatusTooManyRequests, models.CodeTooManyRequests, "too many requests, slow down")
	}

	supplier, err := s.getSupplier(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	participant, err := s.Repo.IsParticipant(ctx, req.TenderID, supplier.ID)
	if err != nil {
		return nil, err
	}
	if !participant {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "you are not a participant of this tender")
	}

	now := s.clock.Now()
	confirmed := s.takeConfirmation(req.TenderID, supplier.ID, req.Amount, now)

	bid, tender, err := s.Repo.PlaceBid(ctx, req.TenderID, supplier.ID, req.Amount, confirmed, now)
	if err != nil {
		if models.IsRejection(err, models.CodeConfirmationRequired) {
			s.recordConfirmation(req.TenderID, supplier.ID, req.Amount, now)
		}
		var apiErr *models.ErrorResponse
		if errors.As(err, &apiErr) {
			s.metrics.BidsRejected.WithLabelValues(apiErr.Code).Inc()
		}
		return nil, err
	}

	s.clearConfirmation(req.TenderID, supplier.ID)
	s.timer.Reset(req.TenderID)
	s.metrics.BidsAccepted.Inc()

	s.logger.Info("bid accepted",
		zap.String("tender_id", tender.ID),
		zap.String("supplier_id", supplier.ID),
		zap.String("amount", bid.Amount.String()))

	s.notifyBid(ctx, tender, bid, supplier.ID)
	return bid, nil
}

// notifyBid рассылает подтверждение подавшему и анонимное уведомление
// остальным участникам торгов.
func (s *BidService) notifyBid(ctx context.Context, tender *models.Tender, bid *models.Bid, supplierID string) {
	participants, err := s.Repo.ListParticipants(ctx, tender.ID)
	if err != nil {
		s.logger.Warn("bid notification skipped", zap.Error(err))
		return
	}

	ordinal := 0
	for i := range participants {
		if participants[i].SupplierID == supplierID {
			ordinal = i + 1
			break
		}
	}

	events := []models.Notification{{
		UserID: supplierID,
		Kind:   models.NotifyBidAccepted,
		Text:   s.reports.BidAcceptedMessage(tender, bid),
	}}
	for _, p := range participants {
		if p.SupplierID == supplierID {
			continue
		}
		events = append(events, models.Notification{
			UserID: p.SupplierID,
			Kind:   models.NotifyBidPlaced,
			Text:   s.reports.BidPlacedMessage(tender, bid, ordinal),
		})
	}
	notifier.Drain(ctx, s.notifier, events)
}

// takeConfirmation проверяет, было ли ранее запрошено подтверждение для этой
// пары тендер-поставщик с той же суммой, и погашает его.
func (s *BidService) takeConfirmation(tenderID, supplierID string, amount decimal.Decimal, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenderID + "/" + supplierID
	p, ok := s.pending[key]
	if !ok {
		return false
	}
	if now.After(p.expiresAt) || !p.amount.Equal(amount) {
		delete(s.pending, key)
		return false
	}
	delete(s.pending, key)
	return true
}

func (s *BidService) recordConfirmation(tenderID, supplierID string, amount decimal.Decimal, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[tenderID+"/"+supplierID] = pendingConfirmation{
		amount:    amount,
		expiresAt: now.Add(ConfirmationWindow),
	}
}

func (s *BidService) clearConfirmation(tenderID, supplierID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, tenderID+"/"+supplierID)
}

// GetMyBids возвращает заявки поставщика.
func (s *BidService) GetMyBids(ctx context.Context, username, limitStr, offsetStr string) ([]models.Bid, error) {
	supplier, err := s.getSupplier(ctx, username)
	if err != nil {
		return nil, err
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, err.Error())
	}
	return s.Repo.ListSupplierBids(ctx, supplier.ID, limit, offset)
}

// GetTenderBids возвращает журнал заявок тендера. Доступен владельцу тендера
// и администратору.
func (s *BidService) GetTenderBids(ctx context.Context, tenderID, username string) ([]models.Bid, error) {
	if username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "username is required")
	}
	actor, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusUnauthorized, models.CodeUnauthorized, "user does not exist")
		}
		return nil, err
	}

	tender, err := s.Tenders.GetTender(ctx, tenderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "tender not found")
		}
		return nil, err
	}
	if actor.Role != models.AdminRole && tender.OrganizerID != actor.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "you are not authorized to view these bids")
	}

	return s.Repo.ListTenderBids(ctx, tenderID)
}
