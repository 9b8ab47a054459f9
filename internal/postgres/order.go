package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vishwas0229/riya-collections/internal/domain/order"
)

const (
	// Conditional decrement: only succeeds when current stock covers the
	// requested quantity. The storage layer evaluates and applies the
	// precondition atomically, which is what prevents overselling under
	// concurrent order creation.
	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`

	restoreStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders
		(order_number, user_id, status, currency, subtotal, shipping, tax, total,
		 payment_method, notes, stock_reserved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items
		(order_id, product_id, product_name, product_sku, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	insertHistorySQL = `INSERT INTO order_status_history
		(order_id, from_status, to_status, note, actor)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderSQL = `SELECT id, order_number, user_id, status, currency, subtotal,
		shipping, tax, total, payment_method, notes, stock_reserved, created_at, updated_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT id, order_id, product_id, product_name, product_sku,
		unit_price, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`

	getHistorySQL = `SELECT id, order_id, from_status, to_status, note, actor, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY id`

	// FOR UPDATE serializes concurrent transitions on the same order, so a
	// transition is always validated against the currently persisted status.
	lockOrderSQL = `SELECT status, stock_reserved FROM orders WHERE id = $1 FOR UPDATE`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	clearStockReservedSQL = `UPDATE orders SET stock_reserved = FALSE WHERE id = $1`

	hasCompletedPaymentSQL = `SELECT EXISTS (
		SELECT 1 FROM payments WHERE order_id = $1 AND status = 'COMPLETED')`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order in one transaction: every line's conditional
// stock decrement, the header, the items, and the initial history row.
// If any decrement cannot be applied the whole unit aborts and no prior
// decrement from this call remains visible.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for product %d: %w", item.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			// Either the product vanished or stock is short; read back the
			// current stock to report which.
			var available int
			err := tx.QueryRow(ctx, getStockSQL, item.ProductID).Scan(&available)
			if errors.Is(err, pgx.ErrNoRows) {
				return &order.ProductNotFoundError{ProductID: item.ProductID}
			}
			if err != nil {
				return fmt.Errorf("reading stock for product %d: %w", item.ProductID, err)
			}
			return &order.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
			}
		}
	}

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.Number, o.UserID, o.Status, o.Currency, o.Subtotal, o.Shipping,
		o.Tax, o.Total, o.PaymentMethod, o.Notes, o.StockReserved,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return order.ErrNumberConflict
		}
		return fmt.Errorf("inserting order %q: %w", o.Number, err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err := tx.QueryRow(ctx, insertOrderItemSQL,
			o.ID, item.ProductID, item.ProductName, item.ProductSKU,
			item.UnitPrice, item.Quantity,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("inserting item for product %d: %w", item.ProductID, err)
		}
	}

	if _, err := tx.Exec(ctx, insertHistorySQL, o.ID, "", o.Status, "order created", ""); err != nil {
		return fmt.Errorf("inserting initial history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns the hydrated order (header plus items).
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.Number, &o.UserID, &o.Status, &o.Currency, &o.Subtotal,
		&o.Shipping, &o.Tax, &o.Total, &o.PaymentMethod, &o.Notes,
		&o.StockReserved, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("scanning items for order %d: %w", id, err)
	}
	return &o, nil
}

// History returns the order's audit trail in insertion order.
func (r *OrderRepository) History(ctx context.Context, orderID int64) ([]order.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, getHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting history for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.StatusHistory, error) {
		var h order.StatusHistory
		err := row.Scan(&h.ID, &h.OrderID, &h.From, &h.To, &h.Note, &h.Actor, &h.CreatedAt)
		return h, err
	})
}

// Transition applies one status change atomically with its history row and,
// when cancelling a stock-holding order, the stock restore.
func (r *OrderRepository) Transition(ctx context.Context, req order.TransitionRequest) (*order.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	changed, err := transitionLocked(ctx, tx, req.OrderID, req.Target, req.Note, req.Actor)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
	}
	// Idempotent same-status requests write nothing; the deferred rollback
	// releases the lock.
	return r.GetByID(ctx, req.OrderID)
}

// transitionLocked applies a status transition inside an open transaction.
// It validates the target against the currently persisted status under a row
// lock, appends exactly one history row, releases reserved stock when
// cancelling, and gates REFUNDED on a COMPLETED payment. A request for the
// status the order is already in changes nothing and returns changed=false.
func transitionLocked(ctx context.Context, tx pgx.Tx, orderID int64, target order.Status, note, actor string) (bool, error) {
	var (
		current  order.Status
		reserved bool
	)
	err := tx.QueryRow(ctx, lockOrderSQL, orderID).Scan(&current, &reserved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, order.ErrNotFound
		}
		return false, fmt.Errorf("locking order %d: %w", orderID, err)
	}

	if current == target {
		return false, nil
	}
	if !order.CanTransition(current, target) {
		return false, &order.InvalidTransitionError{From: current, To: target}
	}

	if target == order.StatusRefunded {
		var paid bool
		if err := tx.QueryRow(ctx, hasCompletedPaymentSQL, orderID).Scan(&paid); err != nil {
			return false, fmt.Errorf("checking payment for order %d: %w", orderID, err)
		}
		if !paid {
			return false, &order.InvalidTransitionError{From: current, To: target}
		}
	}

	if target == order.StatusCancelled && reserved {
		rows, err := tx.Query(ctx, getOrderItemsSQL, orderID)
		if err != nil {
			return false, fmt.Errorf("getting items for order %d: %w", orderID, err)
		}
		items, err := pgx.CollectRows(rows, scanOrderItem)
		if err != nil {
			return false, fmt.Errorf("scanning items for order %d: %w", orderID, err)
		}
		for _, item := range items {
			if _, err := tx.Exec(ctx, restoreStockSQL, item.ProductID, item.Quantity); err != nil {
				return false, fmt.Errorf("restoring stock for product %d: %w", item.ProductID, err)
			}
		}
		if _, err := tx.Exec(ctx, clearStockReservedSQL, orderID); err != nil {
			return false, fmt.Errorf("clearing stock reservation for order %d: %w", orderID, err)
		}
	}

	if _, err := tx.Exec(ctx, updateOrderStatusSQL, orderID, target); err != nil {
		return false, fmt.Errorf("updating status for order %d: %w", orderID, err)
	}
	if _, err := tx.Exec(ctx, insertHistorySQL, orderID, current, target, note, actor); err != nil {
		return false, fmt.Errorf("inserting history for order %d: %w", orderID, err)
	}
	return true, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
		&it.ProductSKU, &it.UnitPrice, &it.Quantity)
	return it, err
}
