package command

import (
	"context"
	"sync"

	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/google/uuid"
)

type fakeRepo struct {
	draft    *domain.Order
	draftErr error
	items    map[uuid.UUID]*domain.OrderItem
	itemErr  error
	vouchers map[string]*domain.Voucher
	commit   error

	calls   []string
	commits int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:    map[uuid.UUID]*domain.OrderItem{},
		vouchers: map[string]*domain.Voucher{},
	}
}

func (r *fakeRepo) DraftByCustomer(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	r.calls = append(r.calls, "DraftByCustomer")
	if r.draftErr != nil {
		return nil, r.draftErr
	}
	if r.draft == nil {
		return nil, domain.ErrOrderNotFound
	}
	return r.draft, nil
}

func (r *fakeRepo) ListByCustomer(_ context.Context, _ uuid.UUID) ([]*domain.Order, error) {
	r.calls = append(r.calls, "ListByCustomer")
	return nil, nil
}

func (r *fakeRepo) ItemByOrder(_ context.Context, _, productID uuid.UUID) (*domain.OrderItem, error) {
	r.calls = append(r.calls, "ItemByOrder")
	if r.itemErr != nil {
		return nil, r.itemErr
	}
	it, ok := r.items[productID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	cp := *it
	return &cp, nil
}

func (r *fakeRepo) VoucherByCode(_ context.Context, code string) (*domain.Voucher, error) {
	r.calls = append(r.calls, "VoucherByCode")
	v, ok := r.vouchers[code]
	if !ok {
		return nil, domain.ErrVoucherNotFound
	}
	return v, nil
}

func (r *fakeRepo) Add(*domain.Order)           { r.calls = append(r.calls, "Add") }
func (r *fakeRepo) Update(*domain.Order)        { r.calls = append(r.calls, "Update") }
func (r *fakeRepo) AddItem(domain.OrderItem)    { r.calls = append(r.calls, "AddItem") }
func (r *fakeRepo) UpdateItem(domain.OrderItem) { r.calls = append(r.calls, "UpdateItem") }
func (r *fakeRepo) RemoveItem(domain.OrderItem) { r.calls = append(r.calls, "RemoveItem") }

func (r *fakeRepo) UnitOfWork() domain.UnitOfWork { return r }

func (r *fakeRepo) Commit(context.Context) error {
	r.commits++
	return r.commit
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (p *fakePublisher) Publish(_ context.Context, msg domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) notifications() []domain.Notification {
	var out []domain.Notification
	for _, m := range p.messages {
		if n, ok := m.(domain.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

func (p *fakePublisher) notificationTexts() []string {
	var out []string
	for _, n := range p.notifications() {
		out = append(out, n.Message)
	}
	return out
}

func (p *fakePublisher) events() []domain.Event {
	var out []domain.Event
	for _, m := range p.messages {
		if e, ok := m.(domain.Event); ok {
			out = append(out, e)
		}
	}
	return out
}
