package app

import (
	"context"
	"fmt"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/config"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/db"
	server "github.com/GolangDeveloperAlmir/sales-service/internal/platform/http"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/idempotency"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/kafka"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/mediator"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/migrate"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/observability"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/outbox"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/command"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/notification"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/repository/cache"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/repository/memory"
	pgrepo "github.com/GolangDeveloperAlmir/sales-service/internal/sales/repository/postgres"
	transport "github.com/GolangDeveloperAlmir/sales-service/internal/sales/transport/kafka"
	"golang.org/x/sync/errgroup"
)

func Run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	shutdownTracer, err := observability.InitTracing(ctx, observability.TracingConfig{
		Exporter: cfg.TracingExporter,
		Endpoint: cfg.OTLPEndpoint,
		Service:  "sales-service",
	}, logger)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Error("tracing shutdown error", log.Err(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	bus := mediator.New(logger)
	collector := notification.NewCollector()
	bus.Subscribe(collector, domain.TypeNotification)

	var producer *kafka.Producer
	if cfg.KafkaEnabled() {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents, logger)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("failed to close kafka producer", log.Err(err))
			}
		}()
	}

	var (
		repo      cache.Source
		checks    = map[string]server.ReadyFunc{}
		transOpts []transport.Option
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		if err := migrate.Up(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, db.PoolOptions{
			MaxConns: int32(cfg.DBMaxConns),
			MinConns: int32(cfg.DBMinConns),
		}, logger)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		repo = pgrepo.New(pool, db.NewTxManager(pool, logger), logger)
		bus.Subscribe(outbox.NewWriter(pool, "order", logger), domain.EventTypes...)
		checks["postgres"] = pool.Ping
		transOpts = append(transOpts, transport.WithDeduper(idempotency.NewStore(pool, logger)))

		if producer != nil {
			relay := outbox.NewRelay(pool, producer, outbox.RelayConfig{
				Interval:   cfg.OutboxInterval,
				Batch:      cfg.OutboxBatch,
				PublishRPS: cfg.OutboxPublishRPS,
			}, logger)
			g.Go(func() error { return relay.Run(gctx) })
		}
	case config.StorageMemory:
		repo = memory.New(logger)
		if producer != nil {
			bus.Subscribe(producer, domain.EventTypes...)
		} else {
			bus.Subscribe(mediator.HandlerFunc(func(_ context.Context, msg mediator.Message) error {
				logger.Info("event", log.Str("type", msg.MessageType()), log.Any("event", msg))
				return nil
			}), domain.EventTypes...)
		}
	}

	vouchers := cache.NewVouchers(cfg.VoucherCacheSize, cfg.VoucherCacheTTL, logger).Wrap(repo)
	handler := command.NewHandler(vouchers, bus, logger)

	if cfg.KafkaEnabled() {
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopicCommands, cfg.KafkaGroupID, logger)
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close kafka consumer", log.Err(err))
			}
		}()
		commands := transport.NewCommandConsumer(handler, collector, logger, transOpts...)
		g.Go(func() error { return consumer.Run(gctx, commands.Handle) })
	} else {
		logger.Warn("KAFKA_BROKERS not set, command consumer disabled")
	}

	ops := server.New(server.NewOpsRouter(logger, checks), cfg, logger)
	g.Go(func() error { return ops.Run(gctx) })

	logger.Info("sales service running", log.Str("storage", cfg.Storage), log.Bool("kafka", cfg.KafkaEnabled()))

	return g.Wait()
}
