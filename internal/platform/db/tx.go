package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/observability"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/codes"
)

var txDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sales_db_tx_duration_seconds",
	Help:    "unit of work transaction duration by outcome",
	Buckets: prometheus.DefBuckets,
}, []string{"outcome"})

// Beginner starts transactions; *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager runs the staged writes of one unit of work in a single
// transaction.
type TxManager struct {
	db  Beginner
	log *log.Logger
}

func NewTxManager(db Beginner, logger *log.Logger) *TxManager {
	return &TxManager{
		db:  db,
		log: log.OrNop(logger),
	}
}

// InTx commits when fn returns nil and rolls back otherwise. fn's error is
// returned unwrapped so callers can match domain sentinels.
func (t *TxManager) InTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	ctx, span := observability.Tracer("sales.db").Start(ctx, "unit_of_work")
	start := time.Now()
	defer func() {
		outcome := "commit"
		if err != nil {
			outcome = "rollback"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		txDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		span.End()
	}()

	tx, err := t.db.Begin(ctx)
	if err != nil {
		t.log.Error("unit of work could not start", log.Err(err))
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			t.log.Error("unit of work rollback failed", log.Err(rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		t.log.Warn("unit of work aborted", log.Err(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		t.log.Error("unit of work commit failed", log.Err(err))
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
