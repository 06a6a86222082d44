package services

import (
	"sync"
	"time"

	"github.com/dkovalev/auction-service/internal/metrics"

	"go.uber.org/zap"
)

// CloseTimerDuration - окно бездействия, после которого аукцион закрывается.
const CloseTimerDuration = 2 * time.Minute

// AuctionTimer - сервис для управления таймерами закрытия аукционов.
// На тендер существует не больше одного таймера: повторный запуск сначала
// отменяет предыдущий. Таймеры живут в памяти и не переживают рестарт
// процесса; пропущенные дедлайны добирает фоновая сверка (Sweeper).
type AuctionTimer struct {
	mu       sync.Mutex
	timers   map[string]armedTimer
	gen      uint64
	duration time.Duration
	onExpire func(tenderID string)
	logger   *zap.Logger
	metrics  *metrics.AuctionMetrics
}

// armedTimer связывает таймер с поколением взвода. Stop не гарантирует, что
// колбэк уже не в полете, поэтому expire сверяет поколение: опоздавший
// колбэк отмененного или замененного таймера не трогает текущий отсчет.
type armedTimer struct {
	timer *time.Timer
	gen   uint64
}

// NewAuctionTimer создает новый сервис таймеров с заданной длительностью отсчета.
func NewAuctionTimer(duration time.Duration, logger *zap.Logger, m *metrics.AuctionMetrics) *AuctionTimer {
	return &AuctionTimer{
		timers:   make(map[string]armedTimer),
		duration: duration,
		logger:   logger,
		metrics:  m,
	}
}

// SetExpiryHandler задает обработчик истечения таймера (Auction Closer).
// Должен быть вызван до первого Arm.
func (t *AuctionTimer) SetExpiryHandler(fn func(tenderID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = fn
}

// Duration возвращает полную длительность отсчета.
func (t *AuctionTimer) Duration() time.Duration {
	return t.duration
}

// Arm запускает отсчет полной длительности для тендера.
func (t *AuctionTimer) Arm(tenderID string) {
	t.ArmFor(tenderID, t.duration)
}

// ArmFor запускает отсчет заданной длительности, отменяя предыдущий таймер
// этого тендера, если он был.
func (t *AuctionTimer) ArmFor(tenderID string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[tenderID]; ok {
		existing.timer.Stop()
		delete(t.timers, tenderID)
		t.metrics.ActiveTimers.Dec()
	}

	t.gen++
	gen := t.gen
	t.timers[tenderID] = armedTimer{
		timer: time.AfterFunc(d, func() {
			t.expire(tenderID, gen)
		}),
		gen: gen,
	}
	t.metrics.ActiveTimers.Inc()

	t.logger.Debug("close timer armed",
		zap.String("tender_id", tenderID),
		zap.Duration("duration", d))
}

func (t *AuctionTimer) expire(tenderID string, gen uint64) {
	t.mu.Lock()
	entry, ok := t.timers[tenderID]
	if !ok || entry.gen != gen {
		// Сработал таймер, уже отмененный или замененный новым взводом.
		t.mu.Unlock()
		return
	}
	delete(t.timers, tenderID)
	t.metrics.ActiveTimers.Dec()
	handler := t.onExpire
	t.mu.Unlock()

	if handler != nil {
		handler(tenderID)
	}
}

// Reset перезапускает отсчет полной длительности; вызывается после каждой
// принятой заявки.
func (t *AuctionTimer) Reset(tenderID string) {
	t.Arm(tenderID)
}

// Cancel останавливает отсчет без закрытия тендера. Повторный вызов и вызов
// для уже сработавшего таймера безопасны.
func (t *AuctionTimer) Cancel(tenderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[tenderID]; ok {
		existing.timer.Stop()
		delete(t.timers, tenderID)
		t.metrics.ActiveTimers.Dec()
		t.logger.Debug("close timer cancelled", zap.String("tender_id", tenderID))
	}
}

// ActiveCount возвращает количество запущенных таймеров.
func (t *AuctionTimer) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// CancelAll останавливает все таймеры (остановка сервиса).
func (t *AuctionTimer) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for tenderID, entry := range t.timers {
		entry.timer.Stop()
		delete(t.timers, tenderID)
		t.metrics.ActiveTimers.Dec()
	}
}
