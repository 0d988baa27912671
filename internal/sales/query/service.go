package query

import (
	"context"
	"errors"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/observability"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reader is the read half of domain.Repository.
type Reader interface {
	DraftByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
}

type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type Cart struct {
	OrderID     uuid.UUID       `json:"order_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Items       []CartItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	VoucherCode string          `json:"voucher_code,omitempty"`
}

type OrderSummary struct {
	ID        uuid.UUID       `json:"id"`
	Status    domain.Status   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

type Service struct {
	repo Reader
	log  *log.Logger
}

func New(repo Reader, logger *log.Logger) *Service {
	return &Service{repo: repo, log: log.OrNop(logger)}
}

// Cart returns the customer's draft order, or nil when there is none.
func (s *Service) Cart(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	ctx, span := observability.Tracer("sales.query").Start(ctx, "Cart")
	defer span.End()

	o, err := s.repo.DraftByCustomer(ctx, customerID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to load cart", log.Err(err))
		return nil, err
	}

	cart := &Cart{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      cartItems(o),
		Subtotal:   o.Subtotal(),
		Discount:   o.Discount(),
		Total:      o.Total(),
	}
	if v := o.Voucher(); v != nil {
		cart.VoucherCode = v.Code
	}

	return cart, nil
}

// Orders lists the customer's paid and cancelled orders. It returns nil when
// there are none.
func (s *Service) Orders(ctx context.Context, customerID uuid.UUID) ([]OrderSummary, error) {
	ctx, span := observability.Tracer("sales.query").Start(ctx, "Orders")
	defer span.End()

	orders, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.log.Error("failed to list orders", log.Err(err))
		return nil, err
	}

	var out []OrderSummary
	for _, o := range orders {
		if o.Status != domain.StatusPaid && o.Status != domain.StatusCancelled {
			continue
		}
		out = append(out, OrderSummary{
			ID:        o.ID,
			Status:    o.Status,
			CreatedAt: o.CreatedAt,
			Items:     cartItems(o),
			Total:     o.Total(),
		})
	}

	return out, nil
}

func cartItems(o *domain.Order) []CartItem {
	items := o.Items()
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.Total(),
		})
	}
	return out
}
