package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vishwas0229/riya-collections/internal/domain/order"
)

// Status is the payment lifecycle status. COMPLETED is terminal: a payment
// that reached it is never mutated back to a non-terminal status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

var (
	// ErrNotFound is returned when no payment matches the given reference.
	ErrNotFound = errors.New("payment not found")
	// ErrVerificationFailed is returned when a callback's signature or
	// payload does not verify. The order is left unchanged; callers must
	// treat this as an opaque failure.
	ErrVerificationFailed = errors.New("payment verification failed")
)

// AmountOutOfBoundsError indicates an offline settlement amount outside the
// configured bounds for the method.
type AmountOutOfBoundsError struct {
	Amount decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

func (e *AmountOutOfBoundsError) Error() string {
	return fmt.Sprintf("amount %s outside allowed range [%s, %s]",
		e.Amount, e.Min, e.Max)
}

// Payment is one settlement attempt for an order. The data model permits
// retries as new rows, but the pipeline treats the relation as effectively
// one-to-one.
type Payment struct {
	ID               string
	OrderID          int64
	Method           order.PaymentMethod
	Amount           decimal.Decimal
	Currency         string
	Status           Status
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Intent is the remote payment intent created at the gateway. OrderRef is
// the gateway's identifier, handed back to the client so it can continue
// checkout and later echoed in the signed callback.
type Intent struct {
	OrderRef string
}

// Gateway is the boundary to the external payment provider.
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*Intent, error)
}

// GatewayCompletion is the result of completing a gateway payment.
type GatewayCompletion struct {
	Payment *Payment
	Order   *order.Order
	// Replay is true when the payment was already COMPLETED and the call
	// changed nothing.
	Replay bool
}

// Repository defines persistence for payments. The multi-step methods are
// single atomic units: CreateOfflineConfirmed inserts the payment and
// confirms the order in one transaction, and CompleteGateway locks the
// payment row (serializing concurrent callbacks for the same reference),
// marks it COMPLETED and confirms the order together.
type Repository interface {
	CreatePending(ctx context.Context, p *Payment) error
	CreateOfflineConfirmed(ctx context.Context, p *Payment, note string) (*order.Order, error)
	GetByOrderID(ctx context.Context, orderID int64) (*Payment, error)
	CompleteGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature, note string) (*GatewayCompletion, error)
	FailGateway(ctx context.Context, gatewayOrderID, gatewayPaymentID string) error
}
