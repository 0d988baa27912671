package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

// Only Draft is produced here. The remaining statuses are set by the payment
// and delivery flows.
const (
	StatusDraft     Status = "draft"
	StatusStarted   Status = "started"
	StatusPaid      Status = "paid"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Status     Status
	CreatedAt  time.Time

	items    []*OrderItem
	voucher  *Voucher
	discount decimal.Decimal
	total    decimal.Decimal
}

func NewDraft(customerID uuid.UUID) *Order {
	return &Order{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     StatusDraft,
		CreatedAt:  time.Now().UTC(),
	}
}

// Restore rebuilds an order read from storage. Totals are recomputed from
// the lines and the voucher rather than trusted.
func Restore(id, customerID uuid.UUID, status Status, createdAt time.Time, items []OrderItem, voucher *Voucher) *Order {
	o := &Order{
		ID:         id,
		CustomerID: customerID,
		Status:     status,
		CreatedAt:  createdAt,
	}
	for _, it := range items {
		line := it
		line.OrderID = id
		o.items = append(o.items, &line)
	}
	if voucher != nil {
		v := *voucher
		o.voucher = &v
	}
	o.recalculate()

	return o
}

// Items returns copies of the lines in insertion order.
func (o *Order) Items() []OrderItem {
	out := make([]OrderItem, 0, len(o.items))
	for _, it := range o.items {
		out = append(out, *it)
	}
	return out
}

func (o *Order) Item(productID uuid.UUID) (OrderItem, bool) {
	if i := o.indexOf(productID); i >= 0 {
		return *o.items[i], true
	}
	return OrderItem{}, false
}

// ItemAlreadyExists reports whether the order has a line for item's product.
func (o *Order) ItemAlreadyExists(item *OrderItem) bool {
	return o.indexOf(item.ProductID) >= 0
}

func (o *Order) Voucher() *Voucher {
	if o.voucher == nil {
		return nil
	}
	v := *o.voucher
	return &v
}

func (o *Order) VoucherApplied() bool      { return o.voucher != nil }
func (o *Order) Discount() decimal.Decimal { return o.discount }
func (o *Order) Total() decimal.Decimal    { return o.total }

func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// AddItem appends a new line or adds units to the existing line for the same
// product, taking the incoming unit price. A failed call leaves the order as
// it was.
func (o *Order) AddItem(item *OrderItem) (OrderItemAdded, error) {
	if i := o.indexOf(item.ProductID); i >= 0 {
		line := o.items[i]
		if line.Quantity+item.Quantity > MaxUnitsPerItem {
			return OrderItemAdded{}, ErrMaxUnitsExceeded
		}
		line.Quantity += item.Quantity
		line.UnitPrice = item.UnitPrice
	} else {
		if item.Quantity > MaxUnitsPerItem {
			return OrderItemAdded{}, ErrMaxUnitsExceeded
		}
		line := *item
		line.OrderID = o.ID
		o.items = append(o.items, &line)
	}
	o.recalculate()

	return OrderItemAdded{
		CustomerID: o.CustomerID,
		OrderID:    o.ID,
		ProductID:  item.ProductID,
		Name:       item.Name,
		UnitPrice:  item.UnitPrice,
		Quantity:   item.Quantity,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// UpdateItem replaces quantity and unit price of an existing line.
func (o *Order) UpdateItem(item *OrderItem) (OrderItemUpdated, error) {
	i := o.indexOf(item.ProductID)
	if i < 0 {
		return OrderItemUpdated{}, ErrItemNotInOrder
	}
	if item.Quantity < MinUnitsPerItem {
		return OrderItemUpdated{}, ErrMinUnitsNotMet
	}
	if item.Quantity > MaxUnitsPerItem {
		return OrderItemUpdated{}, ErrMaxUnitsExceeded
	}

	line := o.items[i]
	line.Quantity = item.Quantity
	line.UnitPrice = item.UnitPrice
	o.recalculate()

	return OrderItemUpdated{
		CustomerID: o.CustomerID,
		OrderID:    o.ID,
		ProductID:  item.ProductID,
		Quantity:   item.Quantity,
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (o *Order) RemoveItem(item *OrderItem) (OrderItemRemoved, error) {
	i := o.indexOf(item.ProductID)
	if i < 0 {
		return OrderItemRemoved{}, ErrItemNotInOrder
	}

	o.items = append(o.items[:i], o.items[i+1:]...)
	o.recalculate()

	return OrderItemRemoved{
		CustomerID: o.CustomerID,
		OrderID:    o.ID,
		ProductID:  item.ProductID,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// ApplyVoucher attaches v when every eligibility rule holds at now. On
// failure the result lists each violated rule and the order is untouched.
func (o *Order) ApplyVoucher(v *Voucher, now time.Time) (VoucherApplied, ValidationResult) {
	result := v.Validate(now)
	if !result.IsValid() {
		return VoucherApplied{}, result
	}

	applied := *v
	o.voucher = &applied
	o.recalculate()

	return VoucherApplied{
		CustomerID:  o.CustomerID,
		OrderID:     o.ID,
		VoucherID:   v.ID,
		VoucherCode: v.Code,
		Discount:    o.discount,
		Total:       o.total,
		Timestamp:   now.UTC(),
	}, result
}

func (o *Order) indexOf(productID uuid.UUID) int {
	for i, it := range o.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// recalculate reapplies the voucher against the current subtotal, so the
// discount always follows the item set.
func (o *Order) recalculate() {
	subtotal := o.Subtotal()
	o.discount = decimal.Zero
	if o.voucher != nil {
		o.discount = o.voucher.Discount(subtotal)
	}
	o.total = floorZero(subtotal.Sub(o.discount))
}
