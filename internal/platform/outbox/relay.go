package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/kafka"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total", Help: "published outbox events",
	}, []string{"event"})
	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_errors_total", Help: "outbox publish errors",
	})
	oldestAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_oldest_age_seconds", Help: "oldest unpublished event age",
	})
)

type RelayConfig struct {
	Interval time.Duration
	Batch    int
	// PublishRPS caps publishes per second. Zero means unlimited.
	PublishRPS float64
}

// Relay moves unpublished outbox rows to the broker. Rows that fail to
// publish are retried with exponential backoff capped at one minute.
type Relay struct {
	pool    *pgxpool.Pool
	pub     Publisher
	cfg     RelayConfig
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewRelay(pool *pgxpool.Pool, pub Publisher, cfg RelayConfig, logger *log.Logger) *Relay {
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.PublishRPS > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.PublishRPS), max(1, int(cfg.PublishRPS)))
	}

	return &Relay{
		pool:    pool,
		pub:     pub,
		cfg:     cfg,
		limiter: lim,
		logger:  log.OrNop(logger),
	}
}

func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", log.Dur("interval", r.cfg.Interval), log.Int("batch", r.cfg.Batch))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.drain(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox drain error", log.Err(err))
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	var oldest time.Time
	if err := r.pool.QueryRow(ctx, `SELECT COALESCE(MIN(created_at), now()) FROM outbox WHERE published_at IS NULL`).Scan(&oldest); err == nil {
		oldestAge.Set(time.Since(oldest).Seconds())
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error("failed to begin tx", log.Err(err))
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, event_type, aggregate_type, aggregate_id, payload, created_at
		FROM outbox
		WHERE published_at IS NULL AND available_at <= now()
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, r.cfg.Batch)
	if err != nil {
		r.logger.Error("failed to list outbox", log.Err(err))
		return err
	}

	type picked struct {
		id  int64
		key string
		val []byte
		typ string
	}
	var batch []picked

	for rows.Next() {
		var (
			id  int64
			env kafka.Envelope
		)
		if err := rows.Scan(&id, &env.Type, &env.AggregateType, &env.AggregateID, &env.Payload, &env.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		val, err := json.Marshal(env)
		if err != nil {
			rows.Close()
			return err
		}
		batch = append(batch, picked{id: id, key: env.AggregateID, val: val, typ: env.Type})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		r.logger.Error("failed to list outbox", log.Err(err))
		return err
	}
	if len(batch) == 0 {
		return tx.Commit(ctx)
	}

	for _, m := range batch {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := r.pub.Publish(ctx, m.key, m.val); err != nil {
			publishErrors.Inc()
			if _, uerr := tx.Exec(ctx, `UPDATE outbox
				SET fail_count = fail_count + 1,
				    last_error = $2,
				    available_at = now() + make_interval(secs => LEAST(60, POW(2, fail_count)))
				WHERE id = $1`, m.id, err.Error()); uerr != nil {
				return uerr
			}
			continue
		}
		eventsPublished.WithLabelValues(m.typ).Inc()
		if _, err := tx.Exec(ctx, `UPDATE outbox SET published_at = now() WHERE id = $1`, m.id); err != nil {
			r.logger.Error("failed to update outbox", log.Err(err))
			return err
		}
	}

	return tx.Commit(ctx)
}
