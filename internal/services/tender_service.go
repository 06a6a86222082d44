package services

import (
	"context"
	"net/http"
	"time"

	"github.com/dkovalev/auction-service/internal/auction"
	"github.com/dkovalev/auction-service/internal/metrics"
	"github.com/dkovalev/auction-service/internal/models"
	"github.com/dkovalev/auction-service/internal/notifier"
	"github.com/dkovalev/auction-service/internal/repository"
	"github.com/dkovalev/auction-service/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Разрешенные переходы статусов тендера. Закрытие выполняется только
// обработчиком истечения таймера, никогда напрямую действием пользователя.
var allowedStatusTransition = map[models.TenderStatus][]models.TenderStatus{
	models.DraftTender:         {models.ActivePendingTender, models.CancelledTender},
	models.ActivePendingTender: {models.ActiveTender, models.CancelledTender},
	models.ActiveTender:        {models.ClosedTender, models.CancelledTender},
	models.ClosedTender:        {},
	models.CancelledTender:     {},
}

func canTransition(from, to models.TenderStatus) bool {
	for _, allowed := range allowedStatusTransition[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TenderService управляет жизненным циклом тендера: создание, одобрение,
// активация, отмена и закрытие торгов с определением победителя.
type TenderService struct {
	Repo  repository.TenderRepository
	Bids  repository.BidRepository
	Users repository.UserRepository

	timer     *AuctionTimer
	scheduler *StartScheduler
	reports   *ReportService
	notifier  notifier.Notifier
	clock     Clock
	logger    *zap.Logger
	metrics   *metrics.AuctionMetrics
}

// NewTenderService создает новый экземпляр TenderService.
func NewTenderService(
	repo repository.TenderRepository,
	bids repository.BidRepository,
	users repository.UserRepository,
	timer *AuctionTimer,
	scheduler *StartScheduler,
	reports *ReportService,
	n notifier.Notifier,
	clock Clock,
	logger *zap.Logger,
	m *metrics.AuctionMetrics,
) *TenderService {
	return &TenderService{
		Repo:      repo,
		Bids:      bids,
		Users:     users,
		timer:     timer,
		scheduler: scheduler,
		reports:   reports,
		notifier:  n,
		clock:     clock,
		logger:    logger,
		metrics:   m,
	}
}

func (s *TenderService) getActor(ctx context.Context, username string) (*models.User, error) {
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
	return user, nil
}

// CreateTender создает новый тендер в статусе draft.
func (s *TenderService) CreateTender(ctx context.Context, req models.TenderRequest) (*models.Tender, error) {
	if req.Title == "" || req.Username == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "missing required fields")
	}
	if req.StartPrice.LessThanOrEqual(decimal.Zero) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "start price must be positive")
	}
	if req.MinBidDecrease.LessThanOrEqual(decimal.Zero) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "minimum bid decrease must be positive")
	}
	if !req.StartAt.After(s.clock.Now()) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "start date must be in the future")
	}

	actor, err := s.getActor(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.OrganizerRole {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "only organizers can create tenders")
	}

	return s.Repo.CreateTender(ctx, req, actor.ID)
}

// ApproveTender одобряет черновик: draft -> active_pending. Требуется роль
// администратора либо организатор-владелец; время начала должно быть в будущем.
func (s *TenderService) ApproveTender(ctx context.Context, tenderID, username string) (*models.Tender, error) {
	actor, err := s.getActor(ctx, username)
	if err != nil {
		return nil, err
	}

	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "tender not found")
		}
		return nil, err
	}

	if actor.Role != models.AdminRole && tender.OrganizerID != actor.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "you are not authorized to approve this tender")
	}
	if !canTransition(tender.Status, models.ActivePendingTender) {
		return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "tender cannot be approved in its current status")
	}
	if !tender.StartAt.After(s.clock.Now()) {
		return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "tender start date has already passed")
	}

	updated, err := s.Repo.UpdateStatus(ctx, tenderID, models.ActivePendingTender)
	if err != nil {
		return nil, err
	}

	s.scheduler.Schedule(updated)
	s.logger.Info("tender approved",
		zap.String("tender_id", updated.ID),
		zap.Time("start_at", updated.StartAt))
	return updated, nil
}

// CancelTender отменяет тендер. Организатор-владелец может отменить только
// до времени начала; администратор - в любой момент до закрытия.
func (s *TenderService) CancelTender(ctx context.Context, tenderID, username string) (*models.Tender, error) {
	actor, err := s.getActor(ctx, username)
	if err != nil {
		return nil, err
	}

	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "tender not found")
		}
		return nil, err
	}

	if actor.Role != models.AdminRole {
		if tender.OrganizerID != actor.ID {
			return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "you are not authorized to cancel this tender")
		}
		if !s.clock.Now().Before(tender.StartAt) {
			return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "tender can only be cancelled before its start time")
		}
	}
	if !canTransition(tender.Status, models.CancelledTender) {
		return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "tender cannot be cancelled in its current status")
	}

	updated, err := s.Repo.UpdateStatus(ctx, tenderID, models.CancelledTender)
	if err != nil {
		return nil, err
	}

	// Тендер покинул active: все его таймеры и уведомления освобождаются.
	s.timer.Cancel(tenderID)
	s.scheduler.Cancel(tenderID)

	participants, err := s.Bids.ListParticipants(ctx, tenderID)
	if err != nil {
		s.logger.Warn("cancel notification skipped", zap.Error(err))
		return updated, nil
	}
	events := make([]models.Notification, 0, len(participants))
	for _, p := range participants {
		events = append(events, models.Notification{
			UserID: p.SupplierID,
			Kind:   models.NotifyTenderCancelled,
			Text:   s.reports.CancelledMessage(updated),
		})
	}
	notifier.Drain(ctx, s.notifier, events)

	s.logger.Info("tender cancelled", zap.String("tender_id", tenderID))
	return updated, nil
}

// ActivateDue активирует тендеры, чье время начала наступило, и взводит для
// каждого таймер закрытия. Вызывается фоновой сверкой и добирает активации,
// пропущенные за время простоя процесса.
func (s *TenderService) ActivateDue(ctx context.Context) error {
	activated, err := s.Repo.ActivateDue(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	for i := range activated {
		tender := &activated[i]
		s.timer.Arm(tender.ID)
		s.metrics.TendersActivated.Inc()
		s.logger.Info("tender activated",
			zap.String("tender_id", tender.ID),
			zap.String("title", tender.Title))
	}
	return nil
}

// CloseExpired - обработчик истечения таймера закрытия. Если внутри окна
// успела пройти заявка, таймер перевзводится на остаток, а закрытие не
// выполняется. Сама проверка last_bid_at встроена в UPDATE закрытия:
// заявка, закоммитившаяся между перечитыванием и закрытием, отменит
// закрытие, и обработчик перевзведется по свежему состоянию.
func (s *TenderService) CloseExpired(tenderID string) {
	ctx := context.Background()

	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.logger.Error("close check failed", zap.String("tender_id", tenderID), zap.Error(err))
		}
		return
	}

	for tender.Status == models.ActiveTender {
		if tender.LastBidAt != nil {
			elapsed := s.clock.Now().Sub(*tender.LastBidAt)
			if elapsed < s.timer.Duration() {
				s.timer.ArmFor(tenderID, s.timer.Duration()-elapsed)
				return
			}
		}

		cutoff := s.clock.Now().Add(-s.timer.Duration())
		closed, err := s.closeTender(ctx, tenderID, cutoff)
		if err != nil {
			s.logger.Error("auction close failed", zap.String("tender_id", tenderID), zap.Error(err))
			return
		}
		if closed {
			return
		}

		// Закрытие проиграло гонку свежей заявке: перечитываем и перевзводимся.
		tender, err = s.Repo.GetTender(ctx, tenderID)
		if err != nil {
			if !repository.IsNotFound(err) {
				s.logger.Error("close recheck failed", zap.String("tender_id", tenderID), zap.Error(err))
			}
			return
		}
	}
}

// closeTender финализирует торги: атомарно переводит тендер в closed,
// определяет победителя и формирует пакет исходящих уведомлений.
// cutoff ограничивает закрытие тендерами, чья последняя заявка не новее
// этой отметки. Доставка выполняется после коммита; повторное закрытие
// и проигрыш гонки заявке возвращают closed=false без ошибки.
func (s *TenderService) closeTender(ctx context.Context, tenderID string, cutoff time.Time) (bool, error) {
	tender, closed, err := s.Repo.CloseIfActive(ctx, tenderID, cutoff)
	if err != nil {
		return false, err
	}
	if !closed {
		return false, nil
	}

	s.timer.Cancel(tenderID)
	s.scheduler.Cancel(tenderID)

	bids, err := s.Bids.ListTenderBids(ctx, tenderID)
	if err != nil {
		return true, err
	}
	participants, err := s.Bids.ListParticipants(ctx, tenderID)
	if err != nil {
		return true, err
	}

	outcome := auction.ComputeOutcome(bids)
	ordinals := auction.ParticipantOrdinals(participants)

	if outcome.Winner == nil {
		s.metrics.AuctionsClosed.WithLabelValues("no_bids").Inc()
		notifier.Drain(ctx, s.notifier, []models.Notification{{
			UserID: tender.OrganizerID,
			Kind:   models.NotifyAuctionNoBids,
			Text:   s.reports.NoBidsMessage(tender),
		}})
		s.logger.Info("auction closed with no bids", zap.String("tender_id", tenderID))
		return true, nil
	}

	profiles := s.loadProfiles(ctx, participants)

	events := []models.Notification{
		{
			UserID: outcome.Winner.SupplierID,
			Kind:   models.NotifyAuctionWon,
			Text:   s.reports.WinnerMessage(tender, outcome.Winner),
		},
		{
			UserID: tender.OrganizerID,
			Kind:   models.NotifyAuctionSummary,
			Text:   s.reports.OrganizerSummary(tender, outcome, ordinals, profiles),
		},
	}
	for _, p := range participants {
		if p.SupplierID == outcome.Winner.SupplierID {
			continue
		}
		events = append(events, models.Notification{
			UserID: p.SupplierID,
			Kind:   models.NotifyAuctionClosed,
			Text:   s.reports.ClosureMessage(tender, ordinals[outcome.Winner.SupplierID], outcome.Winner),
		})
	}
	notifier.Drain(ctx, s.notifier, events)

	s.metrics.AuctionsClosed.WithLabelValues("winner").Inc()
	s.logger.Info("auction closed",
		zap.String("tender_id", tenderID),
		zap.String("winner_id", outcome.Winner.SupplierID),
		zap.String("final_price", outcome.Winner.Amount.String()))
	return true, nil
}

func (s *TenderService) loadProfiles(ctx context.Context, participants []models.TenderParticipant) map[string]*models.User {
	profiles := make(map[string]*models.User, len(participants))
	for _, p := range participants {
		user, err := s.Users.GetByID(ctx, p.SupplierID)
		if err != nil {
			s.logger.Warn("supplier profile lookup failed",
				zap.String("supplier_id", p.SupplierID), zap.Error(err))
			continue
		}
		profiles[p.SupplierID] = user
	}
	return profiles
}

// CloseStale закрывает активные тендеры, простоявшие без заявок дольше окна
// закрытия. Страхует от дедлайнов, истекших за время простоя процесса.
func (s *TenderService) CloseStale(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.timer.Duration())
	stale, err := s.Repo.ListStaleActive(ctx, cutoff)
	if err != nil {
		return err
	}
	for i := range stale {
		if _, err := s.closeTender(ctx, stale[i].ID, cutoff); err != nil {
			s.logger.Error("stale close failed", zap.String("tender_id", stale[i].ID), zap.Error(err))
		}
	}
	return nil
}

// Restore восстанавливает состояние после рестарта процесса: перевзводит
// таймеры закрытия для активных тендеров и стартовые уведомления для
// одобренных. Просроченные напоминания пропускаются.
func (s *TenderService) Restore(ctx context.Context) error {
	active, err := s.Repo.ListByStatus(ctx, models.ActiveTender)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for i := range active {
		tender := &active[i]
		anchor := tender.StartAt
		if tender.LastBidAt != nil {
			anchor = *tender.LastBidAt
		}
		remaining := s.timer.Duration() - now.Sub(anchor)
		if remaining <= 0 {
			closed, err := s.closeTender(ctx, tender.ID, now.Add(-s.timer.Duration()))
			if err != nil {
				s.logger.Error("restore close failed", zap.String("tender_id", tender.ID), zap.Error(err))
				continue
			}
			if !closed {
				// Параллельная заявка оставила тендер активным - взводим заново.
				s.timer.Arm(tender.ID)
			}
			continue
		}
		s.timer.ArmFor(tender.ID, remaining)
	}

	pending, err := s.Repo.ListByStatus(ctx, models.ActivePendingTender)
	if err != nil {
		return err
	}
	for i := range pending {
		s.scheduler.Schedule(&pending[i])
	}

	s.logger.Info("state restored",
		zap.Int("active_tenders", len(active)),
		zap.Int("pending_tenders", len(pending)))
	return nil
}

// GetTender возвращает тендер по идентификатору.
func (s *TenderService) GetTender(ctx context.Context, tenderID string) (*models.Tender, error) {
	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "tender not found")
		}
		return nil, err
	}
	return tender, nil
}

// GetUserTenders возвращает тендеры, видимые пользователю: организатору -
// собственные, поставщику - открытые по allowlist.
func (s *TenderService) GetUserTenders(ctx context.Context, username, limitStr, offsetStr string) ([]models.Tender, error) {
	actor, err := s.getActor(ctx, username)
	if err != nil {
		return nil, err
	}
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, err.Error())
	}

	switch actor.Role {
	case models.OrganizerRole, models.AdminRole:
		return s.Repo.GetOrganizerTenders(ctx, actor.ID, limit, offset)
	default:
		return s.Repo.ListAccessible(ctx, actor.ID)
	}
}

// ListTendersByStatus возвращает все тендеры в заданном статусе.
// Доступно только администратору.
func (s *TenderService) ListTendersByStatus(ctx context.Context, username, statusStr string) ([]models.Tender, error) {
	actor, err := s.getActor(ctx, username)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.AdminRole {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "only admins can list tenders by status")
	}

	status := models.TenderStatus(statusStr)
	switch status {
	case models.DraftTender, models.ActivePendingTender, models.ActiveTender,
		models.ClosedTender, models.CancelledTender:
	default:
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.CodeBadRequest, "unknown tender status")
	}

	return s.Repo.ListByStatus(ctx, status)
}

// GrantAccess открывает поставщику доступ к тендеру. Право есть только у
// организатора-владельца.
func (s *TenderService) GrantAccess(ctx context.Context, tenderID, username, supplierID string) (*models.TenderAccess, error) {
	tender, err := s.authorizeOwner(ctx, tenderID, username)
	if err != nil {
		return nil, err
	}

	supplier, err := s.Users.GetByID(ctx, supplierID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "supplier not found")
		}
		return nil, err
	}
	if supplier.Role != models.SupplierRole || !supplier.IsRegistered() {
		return nil, models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "user is not a registered supplier")
	}

	access, err := s.Repo.GrantAccess(ctx, tenderID, supplierID)
	if err != nil {
		return nil, err
	}

	notifier.Drain(ctx, s.notifier, []models.Notification{{
		UserID: supplierID,
		Kind:   models.NotifyAccessGranted,
		Text:   s.reports.AccessGrantedMessage(tender),
	}})
	return access, nil
}

// RevokeAccess отзывает доступ поставщика к тендеру.
func (s *TenderService) RevokeAccess(ctx context.Context, tenderID, username, supplierID string) error {
	if _, err := s.authorizeOwner(ctx, tenderID, username); err != nil {
		return err
	}
	return s.Repo.RevokeAccess(ctx, tenderID, supplierID)
}

func (s *TenderService) authorizeOwner(ctx context.Context, tenderID, username string) (*models.Tender, error) {
	actor, err := s.getActor(ctx, username)
	if err != nil {
		return nil, err
	}
	tender, err := s.Repo.GetTender(ctx, tenderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewErrorResponse(http.StatusNotFound, models.CodeNotFound, "tender not found")
		}
		return nil, err
	}
	if tender.OrganizerID != actor.ID {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "you do not own this tender")
	}
	return tender, nil
}

// BuildReport строит отчет по завершенному тендеру. detailed=true дает
// расшифровку участников и доступен только владельцу или администратору.
func (s *TenderService) BuildReport(ctx context.Context, tenderID, username string, detailed bool) (string, error) {
	actor, err := s.getActor(ctx, username)
	if err != nil {
		return "", err
	}
	tender, err := s.GetTender(ctx, tenderID)
	if err != nil {
		return "", err
	}
	if tender.Status != models.ClosedTender {
		return "", models.NewErrorResponse(http.StatusConflict, models.CodeConflict, "report is only available for closed tenders")
	}
	if detailed && actor.Role != models.AdminRole && tender.OrganizerID != actor.ID {
		return "", models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "detailed report is available to the tender owner only")
	}

	bids, err := s.Bids.ListTenderBids(ctx, tenderID)
	if err != nil {
		return "", err
	}
	participants, err := s.Bids.ListParticipants(ctx, tenderID)
	if err != nil {
		return "", err
	}

	outcome := auction.ComputeOutcome(bids)
	ordinals := auction.ParticipantOrdinals(participants)
	if detailed {
		return s.reports.OrganizerSummary(tender, outcome, ordinals, s.loadProfiles(ctx, participants)), nil
	}
	return s.reports.AnonymousReport(tender, outcome, ordinals), nil
}

// ManualSweep запускает внеочередной проход сверки по запросу администратора.
func (s *TenderService) ManualSweep(ctx context.Context, username string) error {
	actor, err := s.getActor(ctx, username)
	if err != nil {
		return err
	}
	if actor.Role != models.AdminRole {
		return models.NewErrorResponse(http.StatusForbidden, models.CodeForbidden, "only admins can trigger a sweep")
	}
	s.SweepOnce(ctx)
	return nil
}

// SweepOnce выполняет один проход фоновой сверки: активация наступивших и
// закрытие просроченных тендеров.
func (s *TenderService) SweepOnce(ctx context.Context) {
	if err := s.ActivateDue(ctx); err != nil {
		s.logger.Error("activation sweep failed", zap.Error(err))
	}
	if err := s.CloseStale(ctx); err != nil {
		s.logger.Error("stale close sweep failed", zap.Error(err))
	}
}
