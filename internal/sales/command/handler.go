package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/observability"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const msgStorageUnavailable = "order storage unavailable"

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

var (
	commandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_commands_total",
		Help: "handled order commands by outcome",
	}, []string{"command", "result"})
	notificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_notifications_total",
		Help: "domain notifications published for rejected commands",
	}, []string{"command"})
)

// Handler runs order commands against the customer's draft order. Every
// method reports success as a bool; rejections are published as
// notifications, one per violated rule.
type Handler struct {
	repo domain.Repository
	pub  domain.Publisher
	log  *log.Logger
	now  func() time.Time
}

type Option func(*Handler)

// WithClock sets the time source used for voucher expiry.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(repo domain.Repository, pub domain.Publisher, logger *log.Logger, opts ...Option) *Handler {
	h := &Handler{
		repo: repo,
		pub:  pub,
		log:  log.OrNop(logger),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Dispatch routes cmd to the matching method. Unknown command types are
// rejected without touching the repository.
func (h *Handler) Dispatch(ctx context.Context, cmd Command) bool {
	switch c := deref(cmd).(type) {
	case AddItem:
		return h.AddItem(ctx, c)
	case UpdateItem:
		return h.UpdateItem(ctx, c)
	case RemoveItem:
		return h.RemoveItem(ctx, c)
	case ApplyVoucher:
		return h.ApplyVoucher(ctx, c)
	default:
		h.log.Warn("unsupported command", log.Str("go_type", fmt.Sprintf("%T", cmd)))
		return false
	}
}

// deref turns pointer commands into values; nil pointers become nil.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *AddItem:
		if c == nil {
			return nil
		}
		return *c
	case *UpdateItem:
		if c == nil {
			return nil
		}
		return *c
	case *RemoveItem:
		if c == nil {
			return nil
		}
		return *c
	case *ApplyVoucher:
		if c == nil {
			return nil
		}
		return *c
	}
	return cmd
}

func (h *Handler) AddItem(ctx context.Context, cmd AddItem) bool {
	ctx, span := h.start(ctx, cmd)
	defer span.End()

	if !h.valid(ctx, cmd) {
		return false
	}

	item, err := domain.NewOrderItem(cmd.ProductID, cmd.Name, cmd.Quantity, cmd.UnitPrice)
	if err != nil {
		return h.reject(ctx, cmd, err)
	}

	order, err := h.repo.DraftByCustomer(ctx, cmd.CustomerID)
	var evt domain.OrderItemAdded
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		order = domain.NewDraft(cmd.CustomerID)
		if evt, err = order.AddItem(item); err != nil {
			return h.reject(ctx, cmd, err)
		}
		h.repo.Add(order)
	case err != nil:
		return h.fail(ctx, span, cmd, "failed to load draft order", err)
	default:
		exists := order.ItemAlreadyExists(item)
		if evt, err = order.AddItem(item); err != nil {
			return h.reject(ctx, cmd, err)
		}
		line, _ := order.Item(item.ProductID)
		if exists {
			h.repo.UpdateItem(line)
		} else {
			h.repo.AddItem(line)
		}
		h.repo.Update(order)
	}

	return h.commit(ctx, span, cmd, evt)
}

func (h *Handler) UpdateItem(ctx context.Context, cmd UpdateItem) bool {
	ctx, span := h.start(ctx, cmd)
	defer span.End()

	if !h.valid(ctx, cmd) {
		return false
	}

	order, ok := h.draft(ctx, span, cmd, cmd.CustomerID)
	if !ok {
		return false
	}
	item, ok := h.item(ctx, span, cmd, order.ID, cmd.ProductID)
	if !ok {
		return false
	}

	item.Quantity = cmd.Quantity
	evt, err := order.UpdateItem(item)
	if err != nil {
		return h.reject(ctx, cmd, err)
	}
	line, _ := order.Item(item.ProductID)
	h.repo.UpdateItem(line)
	h.repo.Update(order)

	return h.commit(ctx, span, cmd, evt)
}

func (h *Handler) RemoveItem(ctx context.Context, cmd RemoveItem) bool {
	ctx, span := h.start(ctx, cmd)
	defer span.End()

	if !h.valid(ctx, cmd) {
		return false
	}

	order, ok := h.draft(ctx, span, cmd, cmd.CustomerID)
	if !ok {
		return false
	}
	item, ok := h.item(ctx, span, cmd, order.ID, cmd.ProductID)
	if !ok {
		return false
	}

	evt, err := order.RemoveItem(item)
	if err != nil {
		return h.reject(ctx, cmd, err)
	}
	h.repo.RemoveItem(*item)
	h.repo.Update(order)

	return h.commit(ctx, span, cmd, evt)
}

func (h *Handler) ApplyVoucher(ctx context.Context, cmd ApplyVoucher) bool {
	ctx, span := h.start(ctx, cmd)
	defer span.End()

	if !h.valid(ctx, cmd) {
		return false
	}

	order, ok := h.draft(ctx, span, cmd, cmd.CustomerID)
	if !ok {
		return false
	}

	voucher, err := h.repo.VoucherByCode(ctx, cmd.VoucherCode)
	switch {
	case errors.Is(err, domain.ErrVoucherNotFound):
		return h.reject(ctx, cmd, err)
	case err != nil:
		return h.fail(ctx, span, cmd, "failed to load voucher", err)
	}

	evt, res := order.ApplyVoucher(voucher, h.now())
	if !res.IsValid() {
		return h.rejectAll(ctx, cmd, res.Messages())
	}
	h.repo.Update(order)

	return h.commit(ctx, span, cmd, evt)
}

func (h *Handler) start(ctx context.Context, cmd Command) (context.Context, trace.Span) {
	return observability.Tracer("sales.command").Start(ctx, cmd.Type(),
		trace.WithAttributes(attribute.String("command.type", cmd.Type())))
}

func (h *Handler) valid(ctx context.Context, cmd Command) bool {
	res := cmd.Validate()
	if res.IsValid() {
		return true
	}
	h.rejectAll(ctx, cmd, res.Messages())

	return false
}

func (h *Handler) draft(ctx context.Context, span trace.Span, cmd Command, customerID uuid.UUID) (*domain.Order, bool) {
	order, err := h.repo.DraftByCustomer(ctx, customerID)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return nil, h.reject(ctx, cmd, err)
	case err != nil:
		return nil, h.fail(ctx, span, cmd, "failed to load draft order", err)
	}

	return order, true
}

func (h *Handler) item(ctx context.Context, span trace.Span, cmd Command, orderID, productID uuid.UUID) (*domain.OrderItem, bool) {
	item, err := h.repo.ItemByOrder(ctx, orderID, productID)
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return nil, h.reject(ctx, cmd, err)
	case err != nil:
		return nil, h.fail(ctx, span, cmd, "failed to load order item", err)
	}

	return item, true
}

func (h *Handler) commit(ctx context.Context, span trace.Span, cmd Command, evt domain.Event) bool {
	if err := h.repo.UnitOfWork().Commit(ctx); err != nil {
		h.log.Error("failed to commit order changes",
			log.Str("command", cmd.Type()), log.Err(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		commandsHandled.WithLabelValues(cmd.Type(), resultFailed).Inc()
		return false
	}

	if err := h.pub.Publish(ctx, evt); err != nil {
		h.log.Error("failed to publish event",
			log.Str("event", evt.MessageType()), log.Err(err))
	}
	commandsHandled.WithLabelValues(cmd.Type(), resultOK).Inc()

	return true
}

// reject publishes the notification text of err. Aggregate errors are matched
// by kind, lookup failures by their sentinel message.
func (h *Handler) reject(ctx context.Context, cmd Command, err error) bool {
	return h.rejectAll(ctx, cmd, []string{notificationText(err)})
}

func (h *Handler) rejectAll(ctx context.Context, cmd Command, messages []string) bool {
	for _, msg := range messages {
		h.notify(ctx, cmd, msg)
	}
	h.log.Info("command rejected",
		log.Str("command", cmd.Type()), log.Int("notifications", len(messages)))
	commandsHandled.WithLabelValues(cmd.Type(), resultRejected).Inc()

	return false
}

func (h *Handler) fail(ctx context.Context, span trace.Span, cmd Command, msg string, err error) bool {
	h.log.Error(msg, log.Str("command", cmd.Type()), log.Err(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	h.notify(ctx, cmd, msgStorageUnavailable)
	commandsHandled.WithLabelValues(cmd.Type(), resultFailed).Inc()

	return false
}

func (h *Handler) notify(ctx context.Context, cmd Command, msg string) {
	notificationsPublished.WithLabelValues(cmd.Type()).Inc()
	if err := h.pub.Publish(ctx, domain.NewNotification(cmd.Type(), msg)); err != nil {
		h.log.Error("failed to publish notification",
			log.Str("command", cmd.Type()), log.Err(err))
	}
}

func notificationText(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.KindMinUnitsNotMet:
			return MsgMinUnits
		case domain.KindMaxUnitsExceeded:
			return MsgMaxUnits
		case domain.KindItemNotInOrder:
			return domain.ErrItemNotInOrder.Message
		}
	}

	return err.Error()
}
