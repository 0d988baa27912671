package command

import (
	"strings"

	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeAddItem      = "AddItem"
	TypeUpdateItem   = "UpdateItem"
	TypeRemoveItem   = "RemoveItem"
	TypeApplyVoucher = "ApplyVoucher"
)

const (
	MsgInvalidCustomer = "invalid customer id"
	MsgInvalidProduct  = "invalid product id"
	MsgEmptyName       = "product name must not be empty"
	MsgMinUnits        = "minimum of 1 unit per product"
	MsgMaxUnits        = "maximum of 15 units per product"
	MsgInvalidPrice    = "unit price must be greater than zero"
	MsgEmptyVoucher    = "voucher code must not be empty"
)

// Command is a request to change a customer's draft order. Validate checks
// only the command's own fields and never touches storage.
type Command interface {
	Type() string
	Validate() domain.ValidationResult
}

type AddItem struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

func (AddItem) Type() string { return TypeAddItem }

func (c AddItem) Validate() domain.ValidationResult {
	var r domain.ValidationResult
	checkCustomer(&r, c.CustomerID)
	checkProduct(&r, c.ProductID)
	if strings.TrimSpace(c.Name) == "" {
		r.Add("name", MsgEmptyName)
	}
	checkQuantity(&r, c.Quantity)
	if !c.UnitPrice.IsPositive() {
		r.Add("unit_price", MsgInvalidPrice)
	}

	return r
}

type UpdateItem struct {
	CustomerID uuid.UUID `json:"customer_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
}

func (UpdateItem) Type() string { return TypeUpdateItem }

func (c UpdateItem) Validate() domain.ValidationResult {
	var r domain.ValidationResult
	checkCustomer(&r, c.CustomerID)
	checkProduct(&r, c.ProductID)
	checkQuantity(&r, c.Quantity)

	return r
}

type RemoveItem struct {
	CustomerID uuid.UUID `json:"customer_id"`
	ProductID  uuid.UUID `json:"product_id"`
}

func (RemoveItem) Type() string { return TypeRemoveItem }

func (c RemoveItem) Validate() domain.ValidationResult {
	var r domain.ValidationResult
	checkCustomer(&r, c.CustomerID)
	checkProduct(&r, c.ProductID)

	return r
}

type ApplyVoucher struct {
	CustomerID  uuid.UUID `json:"customer_id"`
	VoucherCode string    `json:"voucher_code"`
}

func (ApplyVoucher) Type() string { return TypeApplyVoucher }

func (c ApplyVoucher) Validate() domain.ValidationResult {
	var r domain.ValidationResult
	checkCustomer(&r, c.CustomerID)
	if strings.TrimSpace(c.VoucherCode) == "" {
		r.Add("voucher_code", MsgEmptyVoucher)
	}

	return r
}

func checkCustomer(r *domain.ValidationResult, id uuid.UUID) {
	if id == uuid.Nil {
		r.Add("customer_id", MsgInvalidCustomer)
	}
}

func checkProduct(r *domain.ValidationResult, id uuid.UUID) {
	if id == uuid.Nil {
		r.Add("product_id", MsgInvalidProduct)
	}
}

func checkQuantity(r *domain.ValidationResult, qty int) {
	if qty < domain.MinUnitsPerItem {
		r.Add("quantity", MsgMinUnits)
	}
	if qty > domain.MaxUnitsPerItem {
		r.Add("quantity", MsgMaxUnits)
	}
}
