package cache

import (
	"context"
	"testing"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/mediator"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/command"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/notification"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	*memory.Repository
	lookups int
	states  int
	gone    bool
}

func (r *countingRepo) VoucherState(ctx context.Context, code string) (domain.VoucherState, error) {
	r.states++
	if r.gone {
		return domain.VoucherState{}, domain.ErrVoucherNotFound
	}
	return r.Repository.VoucherState(ctx, code)
}

func (r *countingRepo) VoucherByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	r.lookups++
	return r.Repository.VoucherByCode(ctx, code)
}

func TestVoucherLookupsAreCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Repository: memory.New(log.Nop())}
	v := domain.NewVoucher("SUMMER", decimal.NewNullDecimal(decimal.NewFromInt(20)), decimal.NullDecimal{},
		5, domain.DiscountByPercentage, time.Now().Add(time.Hour), true, false)
	inner.SeedVoucher(*v)

	repo := NewVouchers(16, time.Minute, log.Nop()).Wrap(inner)

	for i := 0; i < 3; i++ {
		got, err := repo.VoucherByCode(ctx, "SUMMER")
		require.NoError(t, err)
		assert.Equal(t, v.ID, got.ID)
	}
	assert.Equal(t, 1, inner.lookups)
	assert.Equal(t, 2, inner.states)
	assert.Equal(t, 1, repo.Len())

	repo.Invalidate("SUMMER")
	_, err := repo.VoucherByCode(ctx, "SUMMER")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lookups)
}

func TestVoucherMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Repository: memory.New(log.Nop())}
	repo := NewVouchers(16, time.Minute, log.Nop()).Wrap(inner)

	_, err := repo.VoucherByCode(ctx, "LATER")
	require.ErrorIs(t, err, domain.ErrVoucherNotFound)

	inner.SeedVoucher(domain.Voucher{Code: "LATER", Active: true, Quantity: 1})
	got, err := repo.VoucherByCode(ctx, "LATER")
	require.NoError(t, err)
	assert.Equal(t, "LATER", got.Code)
	assert.Equal(t, 2, inner.lookups)
}

func TestCachedVoucherExpires(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Repository: memory.New(log.Nop())}
	inner.SeedVoucher(domain.Voucher{Code: "FLASH", Active: true, Quantity: 1})
	repo := NewVouchers(16, 20*time.Millisecond, log.Nop()).Wrap(inner)

	_, err := repo.VoucherByCode(ctx, "FLASH")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return repo.Len() == 0 }, time.Second, 10*time.Millisecond)

	_, err = repo.VoucherByCode(ctx, "FLASH")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lookups)
}

func TestCachedVoucherUsesCurrentState(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Repository: memory.New(log.Nop())}
	v := domain.NewVoucher("SUMMER", decimal.NewNullDecimal(decimal.NewFromInt(20)), decimal.NullDecimal{},
		5, domain.DiscountByPercentage, time.Now().Add(time.Hour), true, false)
	inner.SeedVoucher(*v)
	repo := NewVouchers(16, time.Minute, log.Nop()).Wrap(inner)

	_, err := repo.VoucherByCode(ctx, "SUMMER")
	require.NoError(t, err)

	withdrawn := *v
	withdrawn.Active, withdrawn.Used, withdrawn.Quantity = false, true, 0
	inner.SeedVoucher(withdrawn)

	got, err := repo.VoucherByCode(ctx, "SUMMER")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.lookups)
	assert.False(t, got.Active)
	assert.True(t, got.Used)
	assert.Equal(t, 0, got.Quantity)
	assert.True(t, got.PercentageDiscount.Decimal.Equal(decimal.NewFromInt(20)))
}

func TestRemovedVoucherIsDropped(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepo{Repository: memory.New(log.Nop())}
	inner.SeedVoucher(domain.Voucher{Code: "ONCE", Active: true, Quantity: 1})
	repo := NewVouchers(16, time.Minute, log.Nop()).Wrap(inner)

	_, err := repo.VoucherByCode(ctx, "ONCE")
	require.NoError(t, err)
	require.Equal(t, 1, repo.Len())

	inner.gone = true
	_, err = repo.VoucherByCode(ctx, "ONCE")
	require.ErrorIs(t, err, domain.ErrVoucherNotFound)
	assert.Equal(t, 0, repo.Len())
}

func TestApplyVoucherRejectsWithdrawnCachedVoucher(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(log.Nop())
	v := domain.NewVoucher("X", decimal.NullDecimal{}, decimal.NewNullDecimal(decimal.NewFromInt(10)),
		10, domain.DiscountByAmount, time.Now().Add(time.Hour), true, false)
	mem.SeedVoucher(*v)

	bus := mediator.New(log.Nop())
	collector := notification.NewCollector()
	bus.Subscribe(collector, domain.TypeNotification)
	h := command.NewHandler(NewVouchers(16, 30*time.Second, log.Nop()).Wrap(mem), bus, log.Nop())

	addAndApply := func(customer uuid.UUID) bool {
		require.True(t, h.AddItem(ctx, command.AddItem{
			CustomerID: customer,
			ProductID:  uuid.New(),
			Name:       "Mug",
			Quantity:   1,
			UnitPrice:  decimal.NewFromInt(50),
		}))
		return h.ApplyVoucher(ctx, command.ApplyVoucher{CustomerID: customer, VoucherCode: "X"})
	}

	require.True(t, addAndApply(uuid.New()))

	withdrawn := *v
	withdrawn.Active, withdrawn.Used = false, true
	mem.SeedVoucher(withdrawn)

	assert.False(t, addAndApply(uuid.New()))
	assert.ElementsMatch(t, []string{domain.MsgVoucherInactive, domain.MsgVoucherUsed}, collector.Messages())
}
