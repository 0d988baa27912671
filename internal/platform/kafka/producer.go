package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/mediator"
	k "github.com/segmentio/kafka-go"
)

// Writer is the part of *kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...k.Message) error
	Close() error
}

type Producer struct {
	writer Writer
	log    *log.Logger
}

func NewProducer(brokersCSV, topic string, logger *log.Logger) *Producer {
	brokers := strings.Split(brokersCSV, ",")

	return NewProducerWithWriter(&k.Writer{
		Addr:         k.TCP(brokers...),
		Topic:        topic,
		Balancer:     &k.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: k.RequireOne,
	}, logger)
}

func NewProducerWithWriter(w Writer, logger *log.Logger) *Producer {
	return &Producer{writer: w, log: log.OrNop(logger)}
}

func (p *Producer) Close() error {
	p.log.Info("closing kafka producer")
	return p.writer.Close()
}

func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if err := p.writer.WriteMessages(ctx, k.Message{Key: []byte(key), Value: value}); err != nil {
		p.log.Error("failed to write message", log.Str("key", key), log.Err(err))
		return err
	}
	p.log.Debug("message written", log.Str("key", key))

	return nil
}

// Handle publishes an aggregate event directly, bypassing the outbox. It
// lets the producer subscribe to a mediator.
func (p *Producer) Handle(ctx context.Context, msg mediator.Message) error {
	evt, ok := msg.(AggregateEvent)
	if !ok {
		return nil
	}

	env, err := NewEnvelope(evt, "order", time.Now().UTC())
	if err != nil {
		return err
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return p.Publish(ctx, env.AggregateID, b)
}
