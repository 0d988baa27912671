package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/idempotency"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/command"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/notification"
	"github.com/GolangDeveloperAlmir/sales-service/pkg/request"
	k "github.com/segmentio/kafka-go"
)

// HeaderIdempotencyKey overrides the default dedup key of a record, which is
// its topic, partition and offset.
const HeaderIdempotencyKey = "idempotency-key"

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeCommand parses a command envelope. Payload fields are snake_case
// and unknown fields are rejected.
func DecodeCommand(data []byte) (command.Command, error) {
	var env Envelope
	if err := request.Decode(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var (
		cmd command.Command
		err error
	)
	switch env.Type {
	case command.TypeAddItem:
		var c command.AddItem
		err = request.Decode(env.Payload, &c)
		cmd = c
	case command.TypeUpdateItem:
		var c command.UpdateItem
		err = request.Decode(env.Payload, &c)
		cmd = c
	case command.TypeRemoveItem:
		var c command.RemoveItem
		err = request.Decode(env.Payload, &c)
		cmd = c
	case command.TypeApplyVoucher:
		var c command.ApplyVoucher
		err = request.Decode(env.Payload, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("unknown command type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}

	return cmd, nil
}

type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) bool
}

type Deduper interface {
	Get(ctx context.Context, key string) (*idempotency.Result, error)
	Save(ctx context.Context, key, commandType string, succeeded bool) error
}

// CommandConsumer feeds command records to the handler one at a time. The
// collector must be subscribed to the handler's notifications.
type CommandConsumer struct {
	handler   Dispatcher
	collector *notification.Collector
	dedup     Deduper
	log       *log.Logger
}

type Option func(*CommandConsumer)

func WithDeduper(d Deduper) Option {
	return func(c *CommandConsumer) { c.dedup = d }
}

func NewCommandConsumer(h Dispatcher, collector *notification.Collector, logger *log.Logger, opts ...Option) *CommandConsumer {
	c := &CommandConsumer{handler: h, collector: collector, log: log.OrNop(logger)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle processes one record. Undecodable records are logged and skipped.
// Only storage failures of the deduper are returned.
func (c *CommandConsumer) Handle(ctx context.Context, msg k.Message) error {
	cmd, err := DecodeCommand(msg.Value)
	if err != nil {
		c.log.Warn("skipping undecodable command",
			log.Int("partition", msg.Partition), log.Any("offset", msg.Offset), log.Err(err))
		return nil
	}

	key := recordKey(msg)
	if c.dedup != nil {
		seen, err := c.dedup.Get(ctx, key)
		if err != nil {
			return err
		}
		if seen.Found {
			c.log.Info("skipping duplicate command", log.Str("key", key), log.Str("command", cmd.Type()))
			return nil
		}
	}

	c.collector.Clear()
	ok := c.handler.Dispatch(ctx, cmd)
	if !ok && c.collector.HasNotifications() {
		c.log.Info("command rejected",
			log.Str("key", key), log.Str("command", cmd.Type()),
			log.Any("notifications", c.collector.Messages()))
	}
	c.collector.Clear()

	if c.dedup != nil {
		return c.dedup.Save(ctx, key, cmd.Type(), ok)
	}
	return nil
}

func recordKey(msg k.Message) string {
	for _, h := range msg.Headers {
		if h.Key == HeaderIdempotencyKey && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return msg.Topic + "/" + strconv.Itoa(msg.Partition) + "/" + strconv.FormatInt(msg.Offset, 10)
}
