package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/kafka"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/mediator"
	"github.com/jackc/pgx/v5/pgconn"
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Writer stores aggregate events in the outbox table for the Relay to pick
// up. Messages that are not aggregate events are ignored.
type Writer struct {
	db            Execer
	aggregateType string
	log           *log.Logger
}

func NewWriter(db Execer, aggregateType string, logger *log.Logger) *Writer {
	return &Writer{db: db, aggregateType: aggregateType, log: log.OrNop(logger)}
}

func (w *Writer) Handle(ctx context.Context, msg mediator.Message) error {
	evt, ok := msg.(kafka.AggregateEvent)
	if !ok {
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.MessageType(), err)
	}
	if _, err := w.db.Exec(ctx, `
		INSERT INTO outbox (aggregate_id, aggregate_type, event_type, payload)
		VALUES ($1,$2,$3,$4)`,
		evt.AggregateID(), w.aggregateType, evt.MessageType(), payload); err != nil {
		w.log.Error("failed to insert outbox", log.Str("event", evt.MessageType()), log.Err(err))
		return err
	}

	return nil
}
