package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/db"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type stagedOp func(ctx context.Context, tx pgx.Tx) error

// Repo reads committed rows through the pool and stages writes until Commit
// runs them in a single transaction.
type Repo struct {
	q   Querier
	tx  *db.TxManager
	log *log.Logger

	mu      sync.Mutex
	pending []stagedOp
}

func New(q Querier, tx *db.TxManager, logger *log.Logger) *Repo {
	return &Repo{q: q, tx: tx, log: log.OrNop(logger)}
}

const orderColumns = `id, customer_id, status, voucher_id, created_at`

func (r *Repo) DraftByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Order, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1 AND status = $2`, customerID, domain.StatusDraft)

	o, err := r.load(ctx, row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		r.log.Error("failed to get draft order", log.Err(err))
		return nil, err
	}

	return o, nil
}

func (r *Repo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	rows, err := r.q.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1 ORDER BY created_at, id`, customerID)
	if err != nil {
		r.log.Error("failed to list orders", log.Err(err))
		return nil, err
	}

	var heads []orderHead
	for rows.Next() {
		var h orderHead
		if err := rows.Scan(&h.id, &h.customerID, &h.status, &h.voucherID, &h.createdAt); err != nil {
			rows.Close()
			r.log.Error("failed to scan order", log.Err(err))
			return nil, err
		}
		heads = append(heads, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		r.log.Error("failed to list orders", log.Err(err))
		return nil, err
	}

	out := make([]*domain.Order, 0, len(heads))
	for _, h := range heads {
		o, err := r.assemble(ctx, h)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	return out, nil
}

func (r *Repo) ItemByOrder(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderItem, error) {
	var it domain.OrderItem
	err := r.q.QueryRow(ctx, `SELECT id, order_id, product_id, name, quantity, unit_price
		FROM order_items WHERE order_id = $1 AND product_id = $2`, orderID, productID).
		Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		r.log.Error("failed to get order item", log.Err(err))
		return nil, err
	}

	return &it, nil
}

const voucherColumns = `id, code, percentage_discount, fixed_discount, quantity, discount_type, expires_at, active, used`

func (r *Repo) VoucherByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	v, err := scanVoucher(r.q.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVoucherNotFound
	}
	if err != nil {
		r.log.Error("failed to get voucher", log.Err(err))
		return nil, err
	}

	return v, nil
}

// VoucherState reads only the eligibility columns of code.
func (r *Repo) VoucherState(ctx context.Context, code string) (domain.VoucherState, error) {
	var st domain.VoucherState
	err := r.q.QueryRow(ctx, `SELECT quantity, expires_at, active, used FROM vouchers WHERE code = $1`, code).
		Scan(&st.Quantity, &st.ExpiresAt, &st.Active, &st.Used)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VoucherState{}, domain.ErrVoucherNotFound
	}
	if err != nil {
		r.log.Error("failed to get voucher state", log.Err(err))
		return domain.VoucherState{}, err
	}

	return st, nil
}

// SaveVoucher upserts v by code. Vouchers are managed outside the order
// flow, so this writes immediately.
func (r *Repo) SaveVoucher(ctx context.Context, v domain.Voucher) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO vouchers (`+voucherColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (code) DO UPDATE SET
			percentage_discount = EXCLUDED.percentage_discount,
			fixed_discount = EXCLUDED.fixed_discount,
			quantity = EXCLUDED.quantity,
			discount_type = EXCLUDED.discount_type,
			expires_at = EXCLUDED.expires_at,
			active = EXCLUDED.active,
			used = EXCLUDED.used`,
		v.ID, v.Code, v.PercentageDiscount, v.FixedDiscount, v.Quantity, string(v.DiscountType), v.ExpiresAt, v.Active, v.Used)
	if err != nil {
		r.log.Error("failed to save voucher", log.Err(err))
		return fmt.Errorf("save voucher %s: %w", v.Code, err)
	}

	return nil
}

func (r *Repo) Add(o *domain.Order) {
	snap := snapshotOf(o)
	r.stage(func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_id, status, voucher_id, discount, total, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,now())`,
			snap.id, snap.customerID, string(snap.status), snap.voucherID, snap.discount, snap.total, snap.createdAt); err != nil {
			return fmt.Errorf("insert order %s: %w", snap.id, err)
		}
		for _, it := range snap.items {
			if err := insertItem(ctx, tx, it); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) Update(o *domain.Order) {
	snap := snapshotOf(o)
	r.stage(func(ctx context.Context, tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE orders SET status = $2, voucher_id = $3, discount = $4, total = $5, updated_at = now()
			WHERE id = $1`,
			snap.id, string(snap.status), snap.voucherID, snap.discount, snap.total)
		if err != nil {
			return fmt.Errorf("update order %s: %w", snap.id, err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("update order %s: %w", snap.id, domain.ErrOrderNotFound)
		}
		return nil
	})
}

func (r *Repo) AddItem(item domain.OrderItem) {
	r.stage(func(ctx context.Context, tx pgx.Tx) error {
		return insertItem(ctx, tx, item)
	})
}

func (r *Repo) UpdateItem(item domain.OrderItem) {
	r.stage(func(ctx context.Context, tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `UPDATE order_items SET quantity = $3, unit_price = $4
			WHERE order_id = $1 AND product_id = $2`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("update item %s: %w", item.ProductID, err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("update item %s: %w", item.ProductID, domain.ErrItemNotFound)
		}
		return nil
	})
}

func (r *Repo) RemoveItem(item domain.OrderItem) {
	r.stage(func(ctx context.Context, tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1 AND product_id = $2`,
			item.OrderID, item.ProductID)
		if err != nil {
			return fmt.Errorf("remove item %s: %w", item.ProductID, err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("remove item %s: %w", item.ProductID, domain.ErrItemNotFound)
		}
		return nil
	})
}

func (r *Repo) UnitOfWork() domain.UnitOfWork { return r }

// Commit runs every staged write in one transaction. Staged writes are
// dropped whether or not the transaction commits.
func (r *Repo) Commit(ctx context.Context) error {
	r.mu.Lock()
	ops := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	return r.tx.InTx(ctx, func(tx pgx.Tx) error {
		for _, op := range ops {
			if err := op(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) stage(op stagedOp) {
	r.mu.Lock()
	r.pending = append(r.pending, op)
	r.mu.Unlock()
}

type orderHead struct {
	id         uuid.UUID
	customerID uuid.UUID
	status     string
	voucherID  uuid.NullUUID
	createdAt  time.Time
}

func (r *Repo) load(ctx context.Context, row pgx.Row) (*domain.Order, error) {
	var h orderHead
	if err := row.Scan(&h.id, &h.customerID, &h.status, &h.voucherID, &h.createdAt); err != nil {
		return nil, err
	}
	return r.assemble(ctx, h)
}

func (r *Repo) assemble(ctx context.Context, h orderHead) (*domain.Order, error) {
	rows, err := r.q.Query(ctx, `SELECT id, order_id, product_id, name, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY position`, h.id)
	if err != nil {
		return nil, fmt.Errorf("list items of %s: %w", h.id, err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan item of %s: %w", h.id, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var voucher *domain.Voucher
	if h.voucherID.Valid {
		voucher, err = scanVoucher(r.q.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, h.voucherID.UUID))
		if err != nil {
			return nil, fmt.Errorf("voucher of %s: %w", h.id, err)
		}
	}

	return domain.Restore(h.id, h.customerID, domain.Status(h.status), h.createdAt, items, voucher), nil
}

func scanVoucher(row pgx.Row) (*domain.Voucher, error) {
	var (
		v     domain.Voucher
		dtype string
	)
	if err := row.Scan(&v.ID, &v.Code, &v.PercentageDiscount, &v.FixedDiscount, &v.Quantity,
		&dtype, &v.ExpiresAt, &v.Active, &v.Used); err != nil {
		return nil, err
	}
	v.DiscountType = domain.DiscountType(dtype)

	return &v, nil
}

func insertItem(ctx context.Context, tx pgx.Tx, it domain.OrderItem) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		it.ID, it.OrderID, it.ProductID, it.Name, it.Quantity, it.UnitPrice); err != nil {
		return fmt.Errorf("insert item %s: %w", it.ProductID, err)
	}
	return nil
}

// orderSnapshot holds the column values of an order at staging time, so later
// changes to the aggregate do not leak into the staged write.
type orderSnapshot struct {
	id         uuid.UUID
	customerID uuid.UUID
	status     domain.Status
	voucherID  uuid.NullUUID
	discount   decimal.Decimal
	total      decimal.Decimal
	createdAt  time.Time
	items      []domain.OrderItem
}

func snapshotOf(o *domain.Order) orderSnapshot {
	s := orderSnapshot{
		id:         o.ID,
		customerID: o.CustomerID,
		status:     o.Status,
		discount:   o.Discount(),
		total:      o.Total(),
		createdAt:  o.CreatedAt,
		items:      o.Items(),
	}
	if v := o.Voucher(); v != nil {
		s.voucherID = uuid.NullUUID{UUID: v.ID, Valid: true}
	}
	return s
}
