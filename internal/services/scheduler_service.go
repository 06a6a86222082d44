package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkovalev/auction-service/internal/models"
	"github.com/dkovalev/auction-service/internal/notifier"
	"github.com/dkovalev/auction-service/internal/repository"

	"go.uber.org/zap"
)

// StartReminderLead - за сколько до начала торгов отправляется напоминание.
const StartReminderLead = 10 * time.Minute

// StartScheduler рассылает напоминания о начале торгов: за 10 минут до
// start_at и в сам момент start_at. Живет независимо от таймера закрытия и
// управляется только календарным временем. Просроченные после рестарта
// напоминания пропускаются, а не отправляются с опозданием.
type StartScheduler struct {
	mu     sync.Mutex
	timers map[string][]*time.Timer

	lead     time.Duration
	tenders  repository.TenderRepository
	bids     repository.BidRepository
	notifier notifier.Notifier
	clock    Clock
	logger   *zap.Logger
}

// NewStartScheduler создает новый планировщик стартовых уведомлений.
func NewStartScheduler(tenders repository.TenderRepository, bids repository.BidRepository, n notifier.Notifier, clock Clock, logger *zap.Logger) *StartScheduler {
	return &StartScheduler{
		timers:   make(map[string][]*time.Timer),
		lead:     StartReminderLead,
		tenders:  tenders,
		bids:     bids,
		notifier: n,
		clock:    clock,
		logger:   logger,
	}
}

// Schedule взводит оба одноразовых уведомления для одобренного тендера.
// Повторный вызов заменяет ранее взведенные таймеры.
func (s *StartScheduler) Schedule(tender *models.Tender) {
	s.cancelLocked(tender.ID)

	now := s.clock.Now()
	var timers []*time.Timer

	if delay := tender.StartAt.Add(-s.lead).Sub(now); delay > 0 {
		tenderID := tender.ID
		timers = append(timers, time.AfterFunc(delay, func() {
			s.fire(tenderID, models.NotifyAuctionStartSoon)
		}))
	}
	if delay := tender.StartAt.Sub(now); delay > 0 {
		tenderID := tender.ID
		timers = append(timers, time.AfterFunc(delay, func() {
			s.fire(tenderID, models.NotifyAuctionStarted)
		}))
	}

	if len(timers) > 0 {
		s.mu.Lock()
		s.timers[tender.ID] = timers
		s.mu.Unlock()
	}

	s.logger.Debug("start notifications scheduled",
		zap.String("tender_id", tender.ID),
		zap.Int("pending", len(timers)))
}

// fire отправляет уведомление всем актуальным на момент срабатывания
// участникам; опоздавшие к моменту планирования тоже получат его.
func (s *StartScheduler) fire(tenderID string, kind models.NotificationKind) {
	ctx := context.Background()

	tender, err := s.tenders.GetTender(ctx, tenderID)
	if err != nil {
		s.logger.Warn("start notification skipped: tender lookup failed",
			zap.String("tender_id", tenderID), zap.Error(err))
		return
	}
	if tender.Status.IsTerminal() {
		return
	}

	participants, err := s.bids.ListParticipants(ctx, tenderID)
	if err != nil {
		s.logger.Warn("start notification skipped: participants lookup failed",
			zap.String("tender_id", tenderID), zap.Error(err))
		return
	}

	var text string
	switch kind {
	case models.NotifyAuctionStartSoon:
		text = fmt.Sprintf("⏰ Торги по тендеру '%s' начнутся через 10 минут (в %s).",
			tender.Title, tender.StartAt.Format("15:04"))
	case models.NotifyAuctionStarted:
		text = fmt.Sprintf("🟢 Торги по тендеру '%s' начались! Стартовая цена: %s ₽.",
			tender.Title, tender.StartPrice)
	}

	for _, p := range participants {
		s.notifier.Notify(ctx, models.Notification{
			UserID: p.SupplierID,
			Kind:   kind,
			Text:   text,
		})
	}
}

// Cancel снимает все невыполненные уведомления тендера. Безопасен для
// уже сработавших таймеров.
func (s *StartScheduler) Cancel(tenderID string) {
	s.cancelLocked(tenderID)
}

func (s *StartScheduler) cancelLocked(tenderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers[tenderID] {
		timer.Stop()
	}
	delete(s.timers, tenderID)
}

// PendingCount возвращает количество взведенных уведомлений тендера.
func (s *StartScheduler) PendingCount(tenderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[tenderID])
}
