package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountByAmount     DiscountType = "amount"
	DiscountByPercentage DiscountType = "percentage"
)

const (
	MsgVoucherInactive    = "voucher is not active"
	MsgVoucherUsed        = "voucher has already been used"
	MsgVoucherExpired     = "voucher has expired"
	MsgVoucherUnavailable = "voucher is no longer available"
)

// Voucher is a discount descriptor. Only the discount field matching
// DiscountType is read. Orders keep their own copy and never modify it.
type Voucher struct {
	ID                 uuid.UUID           `json:"id"`
	Code               string              `json:"code"`
	PercentageDiscount decimal.NullDecimal `json:"percentage_discount"`
	FixedDiscount      decimal.NullDecimal `json:"fixed_discount"`
	Quantity           int                 `json:"quantity"`
	DiscountType       DiscountType        `json:"discount_type"`
	ExpiresAt          time.Time           `json:"expires_at"`
	Active             bool                `json:"active"`
	Used               bool                `json:"used"`
}

func NewVoucher(
	code string,
	percentage, fixed decimal.NullDecimal,
	quantity int,
	discountType DiscountType,
	expiresAt time.Time,
	active, used bool,
) *Voucher {
	return &Voucher{
		ID:                 uuid.New(),
		Code:               code,
		PercentageDiscount: percentage,
		FixedDiscount:      fixed,
		Quantity:           quantity,
		DiscountType:       discountType,
		ExpiresAt:          expiresAt,
		Active:             active,
		Used:               used,
	}
}

// VoucherState holds the fields eligibility depends on. They change while a
// voucher is live, unlike its code and discount.
type VoucherState struct {
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	Used      bool      `json:"used"`
}

func (v Voucher) State() VoucherState {
	return VoucherState{Quantity: v.Quantity, ExpiresAt: v.ExpiresAt, Active: v.Active, Used: v.Used}
}

// WithState returns v carrying s instead of its own eligibility fields.
func (v Voucher) WithState(s VoucherState) Voucher {
	v.Quantity, v.ExpiresAt, v.Active, v.Used = s.Quantity, s.ExpiresAt, s.Active, s.Used
	return v
}

// Validate checks every eligibility rule independently so that a caller can
// report all of them at once.
func (v Voucher) Validate(now time.Time) ValidationResult {
	var r ValidationResult
	if !v.Active {
		r.Add("active", MsgVoucherInactive)
	}
	if v.Used {
		r.Add("used", MsgVoucherUsed)
	}
	if v.ExpiresAt.Before(now) {
		r.Add("expires_at", MsgVoucherExpired)
	}
	if v.Quantity <= 0 {
		r.Add("quantity", MsgVoucherUnavailable)
	}

	return r
}

// Discount is the amount taken off subtotal. It is not capped; the order
// floors its total at zero instead.
func (v Voucher) Discount(subtotal decimal.Decimal) decimal.Decimal {
	switch v.DiscountType {
	case DiscountByAmount:
		if v.FixedDiscount.Valid {
			return v.FixedDiscount.Decimal
		}
	case DiscountByPercentage:
		if v.PercentageDiscount.Valid {
			return subtotal.Mul(v.PercentageDiscount.Decimal).Div(hundred)
		}
	}

	return decimal.Zero
}
