package notification

import (
	"context"
	"sync"

	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
)

// Collector keeps the notifications published while a command runs so the
// caller can inspect them afterwards.
type Collector struct {
	mu    sync.Mutex
	items []domain.Notification
}

func NewCollector() *Collector {
	return &Collector{}
}

// Handle records msg if it is a notification and ignores anything else.
func (c *Collector) Handle(_ context.Context, msg domain.Message) error {
	n, ok := msg.(domain.Notification)
	if !ok {
		return nil
	}

	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()

	return nil
}

func (c *Collector) HasNotifications() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) > 0
}

func (c *Collector) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Messages returns the text of every collected notification in order.
func (c *Collector) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.items))
	for _, n := range c.items {
		out = append(out, n.Message)
	}
	return out
}

func (c *Collector) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}
