package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Message is anything a Publisher can broadcast. It aliases the bare
// interface type so any bus declaring the same shape accepts it as is.
type Message = interface {
	MessageType() string
}

// Event is published once per successful mutation.
type Event interface {
	Message
	AggregateID() uuid.UUID
}

const (
	TypeNotification     = "DomainNotification"
	TypeOrderItemAdded   = "OrderItemAdded"
	TypeOrderItemUpdated = "OrderItemUpdated"
	TypeOrderItemRemoved = "OrderItemRemoved"
	TypeVoucherApplied   = "VoucherApplied"
)

// EventTypes lists every success event type.
var EventTypes = []string{
	TypeOrderItemAdded,
	TypeOrderItemUpdated,
	TypeOrderItemRemoved,
	TypeVoucherApplied,
}

// Notification reports one rejected rule of one command.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	CommandType string    `json:"command_type"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewNotification(commandType, message string) Notification {
	return Notification{
		ID:          uuid.New(),
		CommandType: commandType,
		Message:     message,
		Timestamp:   time.Now().UTC(),
	}
}

func (Notification) MessageType() string { return TypeNotification }

type OrderItemAdded struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (OrderItemAdded) MessageType() string      { return TypeOrderItemAdded }
func (e OrderItemAdded) AggregateID() uuid.UUID { return e.OrderID }

type OrderItemUpdated struct {
	CustomerID uuid.UUID `json:"customer_id"`
	OrderID    uuid.UUID `json:"order_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`
}

func (OrderItemUpdated) MessageType() string      { return TypeOrderItemUpdated }
func (e OrderItemUpdated) AggregateID() uuid.UUID { return e.OrderID }

type OrderItemRemoved struct {
	CustomerID uuid.UUID `json:"customer_id"`
	OrderID    uuid.UUID `json:"order_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (OrderItemRemoved) MessageType() string      { return TypeOrderItemRemoved }
func (e OrderItemRemoved) AggregateID() uuid.UUID { return e.OrderID }

type VoucherApplied struct {
	CustomerID  uuid.UUID       `json:"customer_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	VoucherID   uuid.UUID       `json:"voucher_id"`
	VoucherCode string          `json:"voucher_code"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (VoucherApplied) MessageType() string      { return TypeVoucherApplied }
func (e VoucherApplied) AggregateID() uuid.UUID { return e.OrderID }
