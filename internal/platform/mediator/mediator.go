package mediator

import (
	"context"
	"errors"
	"sync"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
)

// Message is anything that can be broadcast through a Mediator. It is an
// alias so packages can declare the same shape without importing this one.
type Message = interface {
	MessageType() string
}

type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type HandlerFunc func(ctx context.Context, msg Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type subscription struct {
	types   map[string]struct{}
	handler Handler
}

func (s subscription) accepts(t string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Mediator is an in-process fan-out. Publish delivers a message to every
// matching subscriber in subscription order and waits for all of them.
type Mediator struct {
	mu   sync.RWMutex
	subs []subscription
	log  *log.Logger
}

func New(logger *log.Logger) *Mediator {
	return &Mediator{log: log.OrNop(logger)}
}

// Subscribe registers h for the given message types, or for every message
// when no type is given.
func (m *Mediator) Subscribe(h Handler, types ...string) {
	s := subscription{handler: h}
	if len(types) > 0 {
		s.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}

	m.mu.Lock()
	m.subs = append(m.subs, s)
	m.mu.Unlock()
}

func (m *Mediator) Publish(ctx context.Context, msg Message) error {
	m.mu.RLock()
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if !s.accepts(msg.MessageType()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.handler.Handle(ctx, msg); err != nil {
			m.log.Error("message handler failed", log.Str("type", msg.MessageType()), log.Err(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
