package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SweepInterval задает период фоновой сверки состояния тендеров с базой.
const SweepInterval = time.Minute

// Sweeper периодически активирует тендеры с наступившим временем начала и
// закрывает просроченные. Подстраховывает таймеры в памяти процесса.
type Sweeper struct {
	tenders  *TenderService
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper создает новый экземпляр Sweeper.
func NewSweeper(tenders *TenderService, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = SweepInterval
	}
	return &Sweeper{
		tenders:  tenders,
		interval: interval,
		logger:   logger,
	}
}

// Run запускает цикл сверки до отмены контекста. Первый проход выполняется
// сразу, не дожидаясь тика.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))

	s.tenders.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tenders.SweepOnce(ctx)
		}
	}
}
