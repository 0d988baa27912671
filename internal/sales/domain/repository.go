package domain

import (
	"context"

	"github.com/google/uuid"
)

// UnitOfWork applies every change staged on a Repository atomically.
type UnitOfWork interface {
	Commit(ctx context.Context) error
}

// Repository is the persistence boundary of the order aggregate. Lookups
// return ErrOrderNotFound, ErrItemNotFound or ErrVoucherNotFound when nothing
// matches. Mutating methods only stage changes until UnitOfWork().Commit.
type Repository interface {
	DraftByCustomer(ctx context.Context, customerID uuid.UUID) (*Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Order, error)
	ItemByOrder(ctx context.Context, orderID, productID uuid.UUID) (*OrderItem, error)
	VoucherByCode(ctx context.Context, code string) (*Voucher, error)

	Add(order *Order)
	Update(order *Order)
	AddItem(item OrderItem)
	UpdateItem(item OrderItem)
	RemoveItem(item OrderItem)

	UnitOfWork() UnitOfWork
}

// Publisher broadcasts notifications and events and returns once every
// subscriber has handled the message.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}
