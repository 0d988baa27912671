package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrderItem checks the lower quantity bound only. The upper bound belongs
// to the order, which sees the cumulative quantity of a line.
func NewOrderItem(productID uuid.UUID, name string, quantity int, unitPrice decimal.Decimal) (*OrderItem, error) {
	if quantity < MinUnitsPerItem {
		return nil, ErrMinUnitsNotMet
	}

	return &OrderItem{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}, nil
}

func (i OrderItem) Total() decimal.Decimal {
	return lineTotal(i.Quantity, i.UnitPrice)
}
