package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/booking"
	"github.com/iliyamo/arena-booking/internal/config"
	"github.com/iliyamo/arena-booking/internal/database"
	"github.com/iliyamo/arena-booking/internal/handler"
	"github.com/iliyamo/arena-booking/internal/ledger"
	"github.com/iliyamo/arena-booking/internal/lock"
	"github.com/iliyamo/arena-booking/internal/logger"
	"github.com/iliyamo/arena-booking/internal/middleware"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/pricing"
	"github.com/iliyamo/arena-booking/internal/queue"
	"github.com/iliyamo/arena-booking/internal/repository"
	"github.com/iliyamo/arena-booking/internal/repository/memstore"
	"github.com/iliyamo/arena-booking/internal/router"
)

func main() {
	cfg := config.Load()
	log := logger.Must("arena-api", cfg.IsDev())
	defer func() { _ = log.Sync() }()

	store, db := openStore(cfg, log)
	if db != nil {
		defer db.Close()
	}

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange, log)
		defer pub.Close()
		events = pub
	}

	slots := model.NewSlotCatalog(cfg.TimeSlots)
	prices := pricing.NewService(store, slots, log)
	ledgerSvc := ledger.NewService(store, prices, events, log)
	bookingSvc := booking.NewService(store, prices,
		lock.NewSlotGuard(rdb, config.LoadLockConfig(), log),
		events, slots,
		booking.Options{PhoneRegion: cfg.PhoneRegion, MaxQueryMonths: cfg.QueryMaxMonths},
		log)

	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewCachePurger(cacheCfg, rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(
		echomw.Recover(),
		middleware.RequestID(),
		middleware.AccessLog(log),
		middleware.Metrics(),
		echomw.ContextTimeout(cfg.RequestTimeout),
	)

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterRoutes(e, pinger)
	router.RegisterAPI(e, router.Handlers{
		Reservations: handler.NewReservationHandler(bookingSvc, purger, log),
		Payments:     handler.NewPaymentHandler(ledgerSvc, log),
		Reports:      handler.NewReportHandler(ledgerSvc, log),
		Pricing:      handler.NewPricingHandler(prices, log),
	}, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: config.LoadRateLimitConfig(),
		Log:       log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver), zap.Int("time_slots", len(cfg.TimeSlots)))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

// openStore selects the persistence backend. The memory store keeps nothing
// across restarts and is meant for local runs.
func openStore(cfg config.Config, log *zap.Logger) (repository.Store, *sql.DB) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	if cfg.DBAutoSchema {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.Fatal("schema setup failed", zap.Error(err))
		}
	}
	return repository.NewMySQLStore(db), db
}
