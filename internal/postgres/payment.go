package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vishwas0229/riya-collections/internal/domain/order"
	"github.com/vishwas0229/riya-collections/internal/domain/payment"
)

const (
	insertPaymentSQL = `INSERT INTO payments
		(id, order_id, method, amount, currency, status,
		 gateway_order_id, gateway_payment_id, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	getPaymentByOrderSQL = `SELECT id, order_id, method, amount, currency, status,
		gateway_order_id, gateway_payment_id, signature, created_at, updated_at
		FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`

	// FOR UPDATE serializes concurrent callbacks for the same external
	// reference so replays cannot race each other into double-crediting.
	lockPaymentByGatewaySQL = `SELECT id, order_id, amount, status
		FROM payments WHERE gateway_order_id = $1 FOR UPDATE`

	completePaymentSQL = `UPDATE payments
		SET status = $2, gateway_payment_id = $3, signature = $4, updated_at = now()
		WHERE id = $1`

	failPendingPaymentSQL = `UPDATE payments
		SET status = $3, gateway_payment_id = $2, updated_at = now()
		WHERE gateway_order_id = $1 AND status = $4`

	getOrderTotalSQL = `SELECT total FROM orders WHERE id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool   *pgxpool.Pool
	orders *OrderRepository
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{
		pool:   pool,
		orders: NewOrderRepository(pool),
	}
}

// CreatePending inserts a new PENDING payment row.
func (r *PaymentRepository) CreatePending(ctx context.Context, p *payment.Payment) error {
	err := r.pool.QueryRow(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Method, p.Amount, p.Currency, p.Status,
		p.GatewayOrderID, p.GatewayPaymentID, p.Signature,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting payment for order %d: %w", p.OrderID, err)
	}
	return nil
}

// CreateOfflineConfirmed inserts the payment row and confirms the order in
// one transaction, so a payment without its confirmation (or the reverse)
// can never be observed.
func (r *PaymentRepository) CreateOfflineConfirmed(ctx context.Context, p *payment.Payment, note string) (*order.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	err = tx.QueryRow(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Method, p.Amount, p.Currency, p.Status,
		p.GatewayOrderID, p.GatewayPaymentID, p.Signature,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting payment for order %d: %w", p.OrderID, err)
	}

	if _, err := transitionLocked(ctx, tx, p.OrderID, order.StatusConfirmed, note, "system:payment"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.orders.GetByID(ctx, p.OrderID)
}

// GetByOrderID returns the most recent payment for an order.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.pool.QueryRow(ctx, getPaymentByOrderSQL, orderID).Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Currency, &p.Status,
		&p.GatewayOrderID, &p.GatewayPaymentID, &p.Signature,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment for order %d: %w", orderID, err)
	}
	return &p, nil
}

// CompleteGateway marks a verified gateway payment COMPLETED and confirms
// its order, all inside one transaction holding a row lock on the payment.
// A payment already COMPLETED is returned unchanged with Replay set. The
// payment amount is re-checked against the order total under the lock; a
// mismatch marks the payment FAILED and reports a verification failure.
func (r *PaymentRepository) CompleteGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature, note string) (*payment.GatewayCompletion, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var (
		paymentID string
		orderID   int64
		amount    decimal.Decimal
		status    payment.Status
	)
	err = tx.QueryRow(ctx, lockPaymentByGatewaySQL, gatewayOrderID).
		Scan(&paymentID, &orderID, &amount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("locking payment %q: %w", gatewayOrderID, err)
	}

	if status == payment.StatusCompleted {
		p, o, err := r.load(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return &payment.GatewayCompletion{Payment: p, Order: o, Replay: true}, nil
	}

	var total decimal.Decimal
	if err := tx.QueryRow(ctx, getOrderTotalSQL, orderID).Scan(&total); err != nil {
		return nil, fmt.Errorf("reading total for order %d: %w", orderID, err)
	}
	if !amount.Equal(total) {
		if _, err := tx.Exec(ctx, completePaymentSQL, paymentID, payment.StatusFailed, gatewayPaymentID, signature); err != nil {
			return nil, fmt.Errorf("failing payment %q: %w", gatewayOrderID, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return nil, payment.ErrVerificationFailed
	}

	if _, err := tx.Exec(ctx, completePaymentSQL, paymentID, payment.StatusCompleted, gatewayPaymentID, signature); err != nil {
		return nil, fmt.Errorf("completing payment %q: %w", gatewayOrderID, err)
	}
	if _, err := transitionLocked(ctx, tx, orderID, order.StatusConfirmed, note, "system:gateway"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	p, o, err := r.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &payment.GatewayCompletion{Payment: p, Order: o}, nil
}

// FailGateway marks the payment for the given reference FAILED if it is
// still PENDING. Unknown references and already-terminal payments are left
// untouched; the call is idempotent.
func (r *PaymentRepository) FailGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error {
	if gatewayOrderID == "" {
		return nil
	}
	_, err := r.pool.Exec(ctx, failPendingPaymentSQL,
		gatewayOrderID, gatewayPaymentID, payment.StatusFailed, payment.StatusPending)
	if err != nil {
		return fmt.Errorf("failing payment %q: %w", gatewayOrderID, err)
	}
	return nil
}

func (r *PaymentRepository) load(ctx context.Context, orderID int64) (*payment.Payment, *order.Order, error) {
	p, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	o, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return p, o, nil
}
