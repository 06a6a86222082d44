package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuctionMetrics - счетчики и датчики жизненного цикла аукционов.
type AuctionMetrics struct {
	ActiveTimers      prometheus.Gauge
	BidsAccepted      prometheus.Counter
	BidsRejected      *prometheus.CounterVec
	AuctionsClosed    *prometheus.CounterVec
	TendersActivated  prometheus.Counter
	NotificationsSent prometheus.Counter
}

// NewAuctionMetrics регистрирует метрики в переданном реестре.
func NewAuctionMetrics(reg prometheus.Registerer) *AuctionMetrics {
	factory := promauto.With(reg)
	return &AuctionMetrics{
		ActiveTimers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "auction_active_close_timers",
			Help: "Number of armed close timers",
		}),
		BidsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_bids_accepted_total",
			Help: "Total number of accepted bids",
		}),
		BidsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Total number of rejected bids by reason",
		}, []string{"reason"}),
		AuctionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_closed_total",
			Help: "Total number of closed auctions by outcome",
		}, []string{"outcome"}),
		TendersActivated: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_tenders_activated_total",
			Help: "Total number of tenders moved to active by the sweeper",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_notifications_sent_total",
			Help: "Total number of delivered notifications",
		}),
	}
}
