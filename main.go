package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Eursukkul/ticketing-service/config"
	"github.com/Eursukkul/ticketing-service/internal/consumer"
	"github.com/Eursukkul/ticketing-service/internal/handler"
	"github.com/Eursukkul/ticketing-service/internal/notify"
	"github.com/Eursukkul/ticketing-service/internal/repository"
	"github.com/Eursukkul/ticketing-service/internal/service"
	"github.com/Eursukkul/ticketing-service/pkg/cache"
	"github.com/Eursukkul/ticketing-service/pkg/database"
	"github.com/Eursukkul/ticketing-service/pkg/logger"
	"github.com/Eursukkul/ticketing-service/pkg/rabbitmq"
)

type stores struct {
	events  repository.EventRepository
	ledger  repository.LedgerRepository
	tickets repository.TicketRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStores(cfg)

	// Optional infrastructure
	var (
		availability service.AvailabilityCache
		sinks        notify.Multi
	)
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		ac := cache.NewAvailabilityCache(rdb, cfg.CacheTTL)
		availability = ac
		sinks = append(sinks, notify.NewBreaker("redis", notify.NewCacheSink(ac), cfg.BreakerFailureTrigger, cfg.BreakerOpenTimeout))
	}

	var mqConsumer *rabbitmq.Consumer
	if cfg.RabbitURL != "" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ publisher")
		}
		defer publisher.Close()
		sinks = append(sinks, notify.NewBreaker("rabbitmq", notify.NewBrokerSink(publisher), cfg.BreakerFailureTrigger, cfg.BreakerOpenTimeout))

		mqConsumer, err = rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitPrefetch)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ consumer")
		}
		defer mqConsumer.Close()
	}

	var sink service.NotificationSink
	if len(sinks) > 0 {
		sink = sinks
	}

	// Services
	retry := service.RetryConfig{
		MaxRetries:      cfg.ReserveMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}
	compensation := retry
	compensation.MaxRetries = cfg.CompensationRetries

	ledger := service.NewInventoryLedger(st.ledger, retry, compensation)
	issuer := service.NewTicketIssuer(st.tickets, st.ledger)
	eventSvc := service.NewEventService(st.events, availability)
	purchaseSvc := service.NewPurchaseService(ledger, issuer, sink, service.PurchaseConfig{
		Timeout:             cfg.PurchaseTimeout,
		CompensationTimeout: cfg.CompensationTimeout,
		NotificationTimeout: cfg.NotificationTimeout,
	})
	reconciler := service.NewReconciler(st.ledger, ledger, service.ReconcilerConfig{
		Interval:   cfg.ReconcileInterval,
		StaleAfter: cfg.ReconcileStaleAfter,
		BatchSize:  cfg.ReconcileBatchSize,
	})

	e := handler.NewRouter(cfg.AppName, handler.Services{
		Events:    eventSvc,
		Purchases: purchaseSvc,
		Tickets:   issuer,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.ServerPort).Str("storage", cfg.StorageDriver).Msg("ticketing service starting")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := e.Shutdown(shutdownCtx)
		purchaseSvc.Wait()
		return err
	})

	g.Go(func() error {
		return reconciler.Run(gctx)
	})

	if mqConsumer != nil {
		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start consuming")
		}
		eventConsumer := consumer.NewEventConsumer(eventSvc)
		g.Go(func() error {
			return eventConsumer.Run(gctx, msgs)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("ticketing service stopped with error")
		return
	}
	log.Info().Msg("ticketing service stopped")
}

func openStores(cfg *config.Config) stores {
	if cfg.StorageDriver == "memory" {
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		return stores{events: mem.Events(), ledger: mem.Ledger(), tickets: mem.Tickets()}
	}

	db, err := database.NewPostgresDB(cfg.DSN(), database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	return stores{
		events:  repository.NewEventRepository(db),
		ledger:  repository.NewLedgerRepository(db),
		tickets: repository.NewTicketRepository(db),
	}
}
