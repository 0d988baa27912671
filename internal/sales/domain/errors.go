package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindMinUnitsNotMet ErrorKind = iota + 1
	KindMaxUnitsExceeded
	KindItemNotInOrder
)

func (k ErrorKind) String() string {
	switch k {
	case KindMinUnitsNotMet:
		return "min_units_not_met"
	case KindMaxUnitsExceeded:
		return "max_units_exceeded"
	case KindItemNotInOrder:
		return "item_not_in_order"
	default:
		return "unknown"
	}
}

// Error is an aggregate invariant violation. Two errors are equal under
// errors.Is when their kinds match.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMinUnitsNotMet = &Error{
		Kind:    KindMinUnitsNotMet,
		Message: fmt.Sprintf("minimum of %d unit per product", MinUnitsPerItem),
	}
	ErrMaxUnitsExceeded = &Error{
		Kind:    KindMaxUnitsExceeded,
		Message: fmt.Sprintf("maximum of %d units per product", MaxUnitsPerItem),
	}
	ErrItemNotInOrder = &Error{
		Kind:    KindItemNotInOrder,
		Message: "item does not belong to the order",
	}
)

// Lookup failures reported by a Repository.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrItemNotFound    = errors.New("order item not found")
	ErrVoucherNotFound = errors.New("voucher not found")
)
