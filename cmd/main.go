package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkovalev/auction-service/internal/config"
	"github.com/dkovalev/auction-service/internal/db"
	"github.com/dkovalev/auction-service/internal/handlers"
	"github.com/dkovalev/auction-service/internal/metrics"
	"github.com/dkovalev/auction-service/internal/notifier"
	"github.com/dkovalev/auction-service/internal/repository"
	"github.com/dkovalev/auction-service/internal/router"
	"github.com/dkovalev/auction-service/internal/services"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

const handlerTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		log.Fatal("cannot init logger:", err)
	}
	defer logger.Sync()

	runDBMigration(cfg.MigrationURL, cfg.PostgresConn, logger)

	dbPool, err := db.InitDb(cfg)
	if err != nil {
		logger.Fatal("error initializing database", zap.Error(err))
	}
	defer dbPool.Close()

	registry := prometheus.NewRegistry()
	auctionMetrics := metrics.NewAuctionMetrics(registry)

	userRepo := repository.NewPostgresUserRepository(dbPool)
	tenderRepo := repository.NewPostgresTenderRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)

	clock := services.NewClock()
	notify := notifier.NewLogNotifier(logger, auctionMetrics)
	reports := services.NewReportService()

	timer := services.NewAuctionTimer(services.CloseTimerDuration, logger, auctionMetrics)
	scheduler := services.NewStartScheduler(tenderRepo, bidRepo, notify, clock, logger)

	tenderService := services.NewTenderService(
		tenderRepo, bidRepo, userRepo,
		timer, scheduler, reports, notify, clock, logger, auctionMetrics)
	timer.SetExpiryHandler(tenderService.CloseExpired)

	bidLimiter := rate.NewLimiter(rate.Limit(10), 20)
	bidService := services.NewBidService(
		bidRepo, tenderRepo, userRepo,
		timer, reports, notify, clock, logger, auctionMetrics, bidLimiter)

	userService := services.NewUserService(userRepo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tenderService.Restore(ctx); err != nil {
		logger.Fatal("state restore failed", zap.Error(err))
	}

	sweeper := services.NewSweeper(tenderService, services.SweepInterval, logger)
	go sweeper.Run(ctx)

	tenderHandler := handlers.NewTenderHandler(tenderService, logger, handlerTimeout)
	bidHandler := handlers.NewBidHandler(bidService, logger, handlerTimeout)
	userHandler := handlers.NewUserHandler(userService, logger, handlerTimeout)
	pingHandler := handlers.NewPingHandler(logger, handlerTimeout, dbPool)

	routes := router.InitRoutes(tenderHandler, bidHandler, userHandler, pingHandler, registry)

	server := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: routes,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
		timer.CancelAll()
	}()

	logger.Info("server is listening", zap.String("address", cfg.ServerAddress))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func runDBMigration(migrationURL, dbSource string, logger *zap.Logger) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		logger.Fatal("cannot create a new migrate instance", zap.Error(err))
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("failed to run migrate up", zap.Error(err))
	}
	logger.Info("db migrated successfully")
}
