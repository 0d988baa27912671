package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestHandler() (*Handler, *fakeRepo, *fakePublisher) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	h := NewHandler(repo, pub, log.Nop(), WithClock(func() time.Time { return fixedNow }))
	return h, repo, pub
}

func draftWith(t *testing.T, customerID uuid.UUID, items ...*domain.OrderItem) *domain.Order {
	t.Helper()
	o := domain.NewDraft(customerID)
	for _, it := range items {
		_, err := o.AddItem(it)
		require.NoError(t, err)
	}
	return o
}

func newItem(t *testing.T, productID uuid.UUID, qty int, price int64) *domain.OrderItem {
	t.Helper()
	it, err := domain.NewOrderItem(productID, "Test product", qty, decimal.NewFromInt(price))
	require.NoError(t, err)
	return it
}

func TestAddItemCreatesDraftOrder(t *testing.T) {
	h, repo, pub := newTestHandler()
	cmd := AddItem{
		CustomerID: uuid.New(),
		ProductID:  uuid.New(),
		Name:       "Test product",
		Quantity:   2,
		UnitPrice:  decimal.NewFromInt(100),
	}

	ok := h.AddItem(context.Background(), cmd)

	require.True(t, ok)
	assert.Equal(t, []string{"DraftByCustomer", "Add"}, repo.calls)
	assert.Equal(t, 1, repo.commits)
	require.Len(t, pub.messages, 1)
	evt, isAdded := pub.messages[0].(domain.OrderItemAdded)
	require.True(t, isAdded)
	assert.Equal(t, cmd.CustomerID, evt.CustomerID)
	assert.Equal(t, cmd.ProductID, evt.ProductID)
	assert.Equal(t, 2, evt.Quantity)
	assert.True(t, evt.UnitPrice.Equal(decimal.NewFromInt(100)))
}

func TestAddItemInvalidCommandPublishesOneNotificationPerRule(t *testing.T) {
	h, repo, pub := newTestHandler()

	ok := h.AddItem(context.Background(), AddItem{
		CustomerID: uuid.Nil,
		ProductID:  uuid.Nil,
		Name:       "",
		Quantity:   0,
		UnitPrice:  decimal.Zero,
	})

	assert.False(t, ok)
	assert.Empty(t, repo.calls)
	assert.Zero(t, repo.commits)
	assert.Equal(t, []string{
		MsgInvalidCustomer,
		MsgInvalidProduct,
		MsgEmptyName,
		MsgMinUnits,
		MsgInvalidPrice,
	}, pub.notificationTexts())
	for _, n := range pub.notifications() {
		assert.Equal(t, TypeAddItem, n.CommandType)
	}
}

func TestAddItemToExistingDraft(t *testing.T) {
	customer := uuid.New()
	existing := uuid.New()

	tests := []struct {
		name      string
		productID uuid.UUID
		wantCalls []string
	}{
		{
			name:      "new line",
			productID: uuid.New(),
			wantCalls: []string{"DraftByCustomer", "AddItem", "Update"},
		},
		{
			name:      "existing line",
			productID: existing,
			wantCalls: []string{"DraftByCustomer", "UpdateItem", "Update"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, repo, pub := newTestHandler()
			repo.draft = draftWith(t, customer, newItem(t, existing, 2, 100))

			ok := h.AddItem(context.Background(), AddItem{
				CustomerID: customer,
				ProductID:  tc.productID,
				Name:       "Test product",
				Quantity:   1,
				UnitPrice:  decimal.NewFromInt(100),
			})

			require.True(t, ok)
			assert.Equal(t, tc.wantCalls, repo.calls)
			assert.Equal(t, 1, repo.commits)
			assert.Len(t, pub.events(), 1)
			assert.Empty(t, pub.notifications())
			assert.True(t, repo.draft.Total().Equal(decimal.NewFromInt(300)))
		})
	}
}

func TestAddItemAboveMaxOnExistingLineIsRejected(t *testing.T) {
	h, repo, pub := newTestHandler()
	customer, product := uuid.New(), uuid.New()
	repo.draft = draftWith(t, customer, newItem(t, product, 10, 100))

	ok := h.AddItem(context.Background(), AddItem{
		CustomerID: customer,
		ProductID:  product,
		Name:       "Test product",
		Quantity:   6,
		UnitPrice:  decimal.NewFromInt(100),
	})

	assert.False(t, ok)
	assert.Equal(t, []string{MsgMaxUnits}, pub.notificationTexts())
	assert.Zero(t, repo.commits)
	line, _ := repo.draft.Item(product)
	assert.Equal(t, 10, line.Quantity)
}

func TestUpdateItem(t *testing.T) {
	customer, product := uuid.New(), uuid.New()

	t.Run("replaces quantity", func(t *testing.T) {
		h, repo, pub := newTestHandler()
		it := newItem(t, product, 2, 50)
		repo.draft = draftWith(t, customer, it)
		repo.items[product] = it

		ok := h.UpdateItem(context.Background(), UpdateItem{CustomerID: customer, ProductID: product, Quantity: 5})

		require.True(t, ok)
		assert.Equal(t, []string{"DraftByCustomer", "ItemByOrder", "UpdateItem", "Update"}, repo.calls)
		assert.True(t, repo.draft.Total().Equal(decimal.NewFromInt(250)))
		require.Len(t, pub.events(), 1)
		assert.Equal(t, domain.TypeOrderItemUpdated, pub.events()[0].MessageType())
	})

	t.Run("no draft", func(t *testing.T) {
		h, repo, pub := newTestHandler()

		ok := h.UpdateItem(context.Background(), UpdateItem{CustomerID: customer, ProductID: product, Quantity: 5})

		assert.False(t, ok)
		assert.Equal(t, []string{"order not found"}, pub.notificationTexts())
		assert.Equal(t, []string{"DraftByCustomer"}, repo.calls)
	})

	t.Run("item not found", func(t *testing.T) {
		h, repo, pub := newTestHandler()
		repo.draft = draftWith(t, customer)

		ok := h.UpdateItem(context.Background(), UpdateItem{CustomerID: customer, ProductID: product, Quantity: 5})

		assert.False(t, ok)
		assert.Equal(t, []string{"order item not found"}, pub.notificationTexts())
		assert.Zero(t, repo.commits)
	})

	t.Run("item stored but not in aggregate", func(t *testing.T) {
		h, repo, pub := newTestHandler()
		repo.draft = draftWith(t, customer)
		repo.items[product] = newItem(t, product, 1, 10)

		ok := h.UpdateItem(context.Background(), UpdateItem{CustomerID: customer, ProductID: product, Quantity: 5})

		assert.False(t, ok)
		assert.Equal(t, []string{"item does not belong to the order"}, pub.notificationTexts())
		assert.Zero(t, repo.commits)
	})

	t.Run("structural rules", func(t *testing.T) {
		h, repo, pub := newTestHandler()

		ok := h.UpdateItem(context.Background(), UpdateItem{Quantity: 16})

		assert.False(t, ok)
		assert.Equal(t, []string{MsgInvalidCustomer, MsgInvalidProduct, MsgMaxUnits}, pub.notificationTexts())
		assert.Empty(t, repo.calls)
	})
}

func TestRemoveItem(t *testing.T) {
	h, repo, pub := newTestHandler()
	customer, keep, drop := uuid.New(), uuid.New(), uuid.New()
	dropped := newItem(t, drop, 3, 15)
	repo.draft = draftWith(t, customer, newItem(t, keep, 2, 100), dropped)
	repo.items[drop] = dropped

	ok := h.RemoveItem(context.Background(), RemoveItem{CustomerID: customer, ProductID: drop})

	require.True(t, ok)
	assert.Equal(t, []string{"DraftByCustomer", "ItemByOrder", "RemoveItem", "Update"}, repo.calls)
	assert.True(t, repo.draft.Total().Equal(decimal.NewFromInt(200)))
	require.Len(t, pub.events(), 1)
	assert.Equal(t, domain.TypeOrderItemRemoved, pub.events()[0].MessageType())
}

func TestApplyVoucher(t *testing.T) {
	customer := uuid.New()
	valid := domain.NewVoucher("PROMO-15", decimal.NullDecimal{}, decimal.NewNullDecimal(decimal.NewFromInt(15)),
		1, domain.DiscountByAmount, fixedNow.Add(time.Hour), true, false)
	exhausted := domain.NewVoucher("DEAD", decimal.NullDecimal{}, decimal.NewNullDecimal(decimal.NewFromInt(15)),
		0, domain.DiscountByAmount, fixedNow.Add(-time.Hour), false, true)

	t.Run("valid voucher", func(t *testing.T) {
		h, repo, pub := newTestHandler()
		repo.draft = draftWith(t, customer, newItem(t, uuid.New(), 2, 100))
		repo.vouchers[valid.Code] = valid

		ok := h.ApplyVoucher(context.Background(), ApplyVoucher{CustomerID: customer, VoucherCode: valid.Code})

		require.True(t, ok)
		assert.Equal(t, []string{"DraftByCustomer", "VoucherByCode", "Update"}, repo.calls)
		assert.True(t, repo.draft.Total().Equal(decimal.NewFromInt(185)))
		require.Len(t, pub.events(), 1)
		applied := pub.events()[0].(domain.VoucherApplied)
		assert.Equal(t, valid.Code, applied.VoucherCode)
	})

	t.Run("no draft", func(t *testing.T) {
		h, repo, pub := newTestHandler()

		ok := h.ApplyVoucher(context.Background(), ApplyVoucher{CustomerID: customer, VoucherCode: valid.Code})

		assert.False(t, ok)
		assert.Equal(t, []string{"order not found"}, pub.notificationTexts())
		assert.Zero(t, repo.commits)
	})

	t.Run("unknown code", func(t *testing.T) {
		h, repo, pub := newTestHandler()
		repo.draft = draftWith(t, customer)

		ok := h.ApplyVoucher(context.Background(), ApplyVoucher{CustomerID: customer, VoucherCode: "NOPE"})

		assert.False(t, ok)
		assert.Equal(t, []string{"voucher not found"}, pub.notificationTexts())
	})

	t.Run("every rule violated", func(t *testing.T) {
		h, repo, pub := newTestHandler()
		repo.draft = draftWith(t, customer, newItem(t, uuid.New(), 1, 100))
		repo.vouchers[exhausted.Code] = exhausted

		ok := h.ApplyVoucher(context.Background(), ApplyVoucher{CustomerID: customer, VoucherCode: exhausted.Code})

		assert.False(t, ok)
		assert.Equal(t, []string{
			domain.MsgVoucherInactive,
			domain.MsgVoucherUsed,
			domain.MsgVoucherExpired,
			domain.MsgVoucherUnavailable,
		}, pub.notificationTexts())
		assert.Zero(t, repo.commits)
		assert.False(t, repo.draft.VoucherApplied())
	})

	t.Run("empty code", func(t *testing.T) {
		h, repo, pub := newTestHandler()

		ok := h.ApplyVoucher(context.Background(), ApplyVoucher{CustomerID: customer})

		assert.False(t, ok)
		assert.Equal(t, []string{MsgEmptyVoucher}, pub.notificationTexts())
		assert.Empty(t, repo.calls)
	})
}

func TestCommitFailureReturnsFalseWithoutEvent(t *testing.T) {
	h, repo, pub := newTestHandler()
	repo.commit = errors.New("serialization failure")

	ok := h.AddItem(context.Background(), AddItem{
		CustomerID: uuid.New(),
		ProductID:  uuid.New(),
		Name:       "Test product",
		Quantity:   1,
		UnitPrice:  decimal.NewFromInt(10),
	})

	assert.False(t, ok)
	assert.Equal(t, 1, repo.commits)
	assert.Empty(t, pub.messages)
}

func TestRepositoryFailureIsReported(t *testing.T) {
	h, repo, pub := newTestHandler()
	repo.draftErr = errors.New("connection refused")

	ok := h.RemoveItem(context.Background(), RemoveItem{CustomerID: uuid.New(), ProductID: uuid.New()})

	assert.False(t, ok)
	assert.Equal(t, []string{msgStorageUnavailable}, pub.notificationTexts())
	assert.Zero(t, repo.commits)
}

func TestDispatch(t *testing.T) {
	h, repo, _ := newTestHandler()
	customer := uuid.New()

	ok := h.Dispatch(context.Background(), &AddItem{
		CustomerID: customer,
		ProductID:  uuid.New(),
		Name:       "Test product",
		Quantity:   1,
		UnitPrice:  decimal.NewFromInt(10),
	})
	require.True(t, ok)
	assert.Equal(t, 1, repo.commits)

	assert.False(t, h.Dispatch(context.Background(), RemoveItem{}))
	assert.False(t, h.Dispatch(context.Background(), nil))
}

func TestDispatchNilPointerCommands(t *testing.T) {
	h, repo, pub := newTestHandler()

	for _, cmd := range []Command{(*AddItem)(nil), (*UpdateItem)(nil), (*RemoveItem)(nil), (*ApplyVoucher)(nil)} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Dispatch(context.Background(), cmd))
		})
	}
	assert.Empty(t, repo.calls)
	assert.Zero(t, repo.commits)
	assert.Empty(t, pub.events)
}
