package kafka

import (
	"context"
	"testing"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/idempotency"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/mediator"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/command"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/notification"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/repository/memory"
	"github.com/google/uuid"
	k "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	customer, product := uuid.New(), uuid.New()

	cmd, err := DecodeCommand([]byte(`{"type":"AddItem","payload":{"customer_id":"` + customer.String() +
		`","product_id":"` + product.String() + `","name":"Keyboard","quantity":2,"unit_price":"49.90"}}`))
	require.NoError(t, err)
	add, ok := cmd.(command.AddItem)
	require.True(t, ok)
	assert.Equal(t, customer, add.CustomerID)
	assert.Equal(t, 2, add.Quantity)
	assert.True(t, add.UnitPrice.Equal(decimal.RequireFromString("49.90")))

	cmd, err = DecodeCommand([]byte(`{"type":"ApplyVoucher","payload":{"customer_id":"` + customer.String() + `","voucher_code":"OFF"}}`))
	require.NoError(t, err)
	assert.Equal(t, command.ApplyVoucher{CustomerID: customer, VoucherCode: "OFF"}, cmd)
}

func TestDecodeCommandErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"unknown type":  `{"type":"Checkout","payload":{}}`,
		"unknown field": `{"type":"RemoveItem","payload":{"customer_id":"` + uuid.NewString() + `","sku":"x"}}`,
		"bad uuid":      `{"type":"RemoveItem","payload":{"customer_id":"nope"}}`,
		"not json":      `AddItem`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCommand([]byte(raw))
			assert.Error(t, err)
		})
	}
}

type memDedup struct {
	seen map[string]bool
}

func (d *memDedup) Get(_ context.Context, key string) (*idempotency.Result, error) {
	ok, found := d.seen[key]
	return &idempotency.Result{Found: found, Succeeded: ok}, nil
}

func (d *memDedup) Save(_ context.Context, key, _ string, succeeded bool) error {
	d.seen[key] = succeeded
	return nil
}

func newConsumer(t *testing.T) (*CommandConsumer, *memory.Repository, *memDedup) {
	t.Helper()
	repo := memory.New(log.Nop())
	m := mediator.New(log.Nop())
	collector := notification.NewCollector()
	m.Subscribe(collector, domain.TypeNotification)
	dedup := &memDedup{seen: map[string]bool{}}
	h := command.NewHandler(repo, m, log.Nop())
	return NewCommandConsumer(h, collector, log.Nop(), WithDeduper(dedup)), repo, dedup
}

func TestHandleDispatchesOnce(t *testing.T) {
	ctx := context.Background()
	c, repo, dedup := newConsumer(t)
	customer := uuid.New()
	msg := k.Message{
		Topic: "sales.commands", Partition: 0, Offset: 7,
		Value: []byte(`{"type":"AddItem","payload":{"customer_id":"` + customer.String() +
			`","product_id":"` + uuid.NewString() + `","name":"Mouse","quantity":1,"unit_price":10}}`),
	}

	require.NoError(t, c.Handle(ctx, msg))
	require.NoError(t, c.Handle(ctx, msg))

	o, err := repo.DraftByCustomer(ctx, customer)
	require.NoError(t, err)
	require.Len(t, o.Items(), 1)
	assert.Equal(t, 1, o.Items()[0].Quantity)
	assert.Equal(t, map[string]bool{"sales.commands/0/7": true}, dedup.seen)
}

func TestHandleRecordsRejectedCommand(t *testing.T) {
	ctx := context.Background()
	c, _, dedup := newConsumer(t)
	msg := k.Message{
		Headers: []k.Header{{Key: HeaderIdempotencyKey, Value: []byte("req-1")}},
		Value:   []byte(`{"type":"ApplyVoucher","payload":{"customer_id":"` + uuid.NewString() + `","voucher_code":"X"}}`),
	}

	require.NoError(t, c.Handle(ctx, msg))
	assert.Equal(t, map[string]bool{"req-1": false}, dedup.seen)
	assert.False(t, c.collector.HasNotifications())
}

func TestHandleSkipsGarbage(t *testing.T) {
	c, _, dedup := newConsumer(t)
	require.NoError(t, c.Handle(context.Background(), k.Message{Value: []byte(`{]`)}))
	assert.Empty(t, dedup.seen)
}
