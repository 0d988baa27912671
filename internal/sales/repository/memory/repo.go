package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/google/uuid"
)

type orderRow struct {
	id         uuid.UUID
	customerID uuid.UUID
	status     domain.Status
	createdAt  time.Time
	voucher    *domain.Voucher
}

type state struct {
	orders   map[uuid.UUID]orderRow
	items    map[uuid.UUID][]domain.OrderItem
	vouchers map[string]domain.Voucher
}

func (s state) clone() state {
	c := state{
		orders:   make(map[uuid.UUID]orderRow, len(s.orders)),
		items:    make(map[uuid.UUID][]domain.OrderItem, len(s.items)),
		vouchers: s.vouchers,
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]domain.OrderItem(nil), v...)
	}
	return c
}

type op func(*state) error

// Repository keeps orders in process memory. Lookups read committed state
// only; mutations are staged and applied together by Commit.
type Repository struct {
	mu      sync.RWMutex
	data    state
	pending []op
	log     *log.Logger
}

func New(logger *log.Logger) *Repository {
	return &Repository{
		data: state{
			orders:   map[uuid.UUID]orderRow{},
			items:    map[uuid.UUID][]domain.OrderItem{},
			vouchers: map[string]domain.Voucher{},
		},
		log: log.OrNop(logger),
	}
}

// SeedVoucher stores v directly, outside any unit of work.
func (r *Repository) SeedVoucher(v domain.Voucher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.vouchers[v.Code] = v
}

// SaveOrder stores o directly, outside any unit of work. Used to load
// orders in states the command handler never produces.
func (r *Repository) SaveOrder(o *domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.orders[o.ID] = rowOf(o)
	r.data.items[o.ID] = o.Items()
}

func (r *Repository) DraftByCustomer(_ context.Context, customerID uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, row := range r.data.orders {
		if row.customerID == customerID && row.status == domain.StatusDraft {
			return r.restore(row), nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

// ListByCustomer returns the customer's orders, oldest first.
func (r *Repository) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, row := range r.data.orders {
		if row.customerID == customerID {
			out = append(out, r.restore(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (r *Repository) ItemByOrder(_ context.Context, orderID, productID uuid.UUID) (*domain.OrderItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.data.items[orderID] {
		if it.ProductID == productID {
			cp := it
			return &cp, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (r *Repository) VoucherByCode(_ context.Context, code string) (*domain.Voucher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data.vouchers[code]
	if !ok {
		return nil, domain.ErrVoucherNotFound
	}
	return &v, nil
}

func (r *Repository) VoucherState(_ context.Context, code string) (domain.VoucherState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.data.vouchers[code]
	if !ok {
		return domain.VoucherState{}, domain.ErrVoucherNotFound
	}
	return v.State(), nil
}

func (r *Repository) Add(o *domain.Order) {
	row, items := rowOf(o), o.Items()
	r.stage(func(s *state) error {
		if _, ok := s.orders[row.id]; ok {
			return fmt.Errorf("order %s already exists", row.id)
		}
		s.orders[row.id] = row
		s.items[row.id] = items
		return nil
	})
}

func (r *Repository) Update(o *domain.Order) {
	row := rowOf(o)
	r.stage(func(s *state) error {
		if _, ok := s.orders[row.id]; !ok {
			return fmt.Errorf("update order %s: %w", row.id, domain.ErrOrderNotFound)
		}
		s.orders[row.id] = row
		return nil
	})
}

func (r *Repository) AddItem(item domain.OrderItem) {
	r.stage(func(s *state) error {
		if _, ok := s.orders[item.OrderID]; !ok {
			return fmt.Errorf("add item to %s: %w", item.OrderID, domain.ErrOrderNotFound)
		}
		s.items[item.OrderID] = append(s.items[item.OrderID], item)
		return nil
	})
}

func (r *Repository) UpdateItem(item domain.OrderItem) {
	r.stage(func(s *state) error {
		lines := s.items[item.OrderID]
		for i := range lines {
			if lines[i].ProductID == item.ProductID {
				lines[i].Quantity = item.Quantity
				lines[i].UnitPrice = item.UnitPrice
				return nil
			}
		}
		return fmt.Errorf("update item %s: %w", item.ProductID, domain.ErrItemNotFound)
	})
}

func (r *Repository) RemoveItem(item domain.OrderItem) {
	r.stage(func(s *state) error {
		lines := s.items[item.OrderID]
		for i := range lines {
			if lines[i].ProductID == item.ProductID {
				s.items[item.OrderID] = append(lines[:i], lines[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("remove item %s: %w", item.ProductID, domain.ErrItemNotFound)
	})
}

func (r *Repository) UnitOfWork() domain.UnitOfWork { return r }

// Commit applies every staged change or none of them. Staged changes are
// dropped either way.
func (r *Repository) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ops := r.pending
	r.pending = nil

	next := r.data.clone()
	for _, apply := range ops {
		if err := apply(&next); err != nil {
			r.log.Error("failed to commit", log.Int("staged", len(ops)), log.Err(err))
			return err
		}
	}
	r.data = next

	return nil
}

func (r *Repository) stage(o op) {
	r.mu.Lock()
	r.pending = append(r.pending, o)
	r.mu.Unlock()
}

func (r *Repository) restore(row orderRow) *domain.Order {
	return domain.Restore(row.id, row.customerID, row.status, row.createdAt, r.data.items[row.id], row.voucher)
}

func rowOf(o *domain.Order) orderRow {
	return orderRow{
		id:         o.ID,
		customerID: o.CustomerID,
		status:     o.Status,
		createdAt:  o.CreatedAt,
		voucher:    o.Voucher(),
	}
}
