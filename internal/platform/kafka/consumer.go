package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	k "github.com/segmentio/kafka-go"
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (k.Message, error)
	CommitMessages(ctx context.Context, msgs ...k.Message) error
	Close() error
}

// HandleFunc processes one record. A returned error is logged; the record is
// committed regardless so a poison message cannot block the partition.
type HandleFunc func(ctx context.Context, msg k.Message) error

type Consumer struct {
	reader Reader
	log    *log.Logger
}

func NewConsumer(brokersCSV, topic, groupID string, logger *log.Logger) *Consumer {
	return NewConsumerWithReader(k.NewReader(k.ReaderConfig{
		Brokers:        strings.Split(brokersCSV, ","),
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	}), logger)
}

func NewConsumerWithReader(r Reader, logger *log.Logger) *Consumer {
	return &Consumer{reader: r, log: log.OrNop(logger)}
}

// Run fetches records until ctx is done.
func (c *Consumer) Run(ctx context.Context, handle HandleFunc) error {
	c.log.Info("kafka consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("failed to fetch message", log.Err(err))
			return err
		}

		if err := handle(ctx, msg); err != nil {
			c.log.Error("failed to handle message",
				log.Str("topic", msg.Topic), log.Int("partition", msg.Partition),
				log.Any("offset", msg.Offset), log.Err(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("failed to commit message", log.Err(err))
			return err
		}
	}
}

func (c *Consumer) Close() error {
	c.log.Info("closing kafka consumer")
	return c.reader.Close()
}
