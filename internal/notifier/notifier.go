package notifier

import (
	"context"

	"github.com/dkovalev/auction-service/internal/metrics"
	"github.com/dkovalev/auction-service/internal/models"

	"go.uber.org/zap"
)

// Notifier доставляет уведомления пользователям. Доставка выполняется по
// принципу best-effort: сбой логируется и никогда не прерывает вызывающую
// операцию.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// LogNotifier пишет уведомления в журнал. Служит заглушкой транспорта
// (бот-фронтенд подключается снаружи) и основой для тестов.
type LogNotifier struct {
	logger  *zap.Logger
	metrics *metrics.AuctionMetrics
}

// NewLogNotifier создает новый экземпляр LogNotifier.
func NewLogNotifier(logger *zap.Logger, m *metrics.AuctionMetrics) *LogNotifier {
	return &LogNotifier{logger: logger, metrics: m}
}

func (n *LogNotifier) Notify(_ context.Context, event models.Notification) {
	n.logger.Info("notification",
		zap.String("user_id", event.UserID),
		zap.String("kind", string(event.Kind)),
		zap.String("text", event.Text),
	)
	if n.metrics != nil {
		n.metrics.NotificationsSent.Inc()
	}
}

// Drain доставляет пакет уведомлений, собранный операцией ядра после коммита
// транзакции.
func Drain(ctx context.Context, n Notifier, events []models.Notification) {
	for _, event := range events {
		n.Notify(ctx, event)
	}
}
