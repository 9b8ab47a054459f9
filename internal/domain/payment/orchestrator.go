package payment

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vishwas0229/riya-collections/internal/domain/order"
)

// Config holds settlement parameters. All of it comes from application
// configuration; nothing here is hardcoded.
type Config struct {
	// WebhookSecret is the shared secret used to verify gateway callbacks.
	WebhookSecret string
	// CODSurchargeRate is the cash-on-delivery surcharge as a fraction of
	// the order total (e.g. 0.02 for 2%).
	CODSurchargeRate decimal.Decimal
	// CODMinAmount and CODMaxAmount bound the order totals eligible for
	// cash on delivery. A zero max means unbounded.
	CODMinAmount decimal.Decimal
	CODMaxAmount decimal.Decimal
}

// Result is the outcome of initiating settlement. Order reflects any status
// change made as part of initiation (offline settlement confirms the order).
type Result struct {
	Payment *Payment
	Order   *order.Order
}

// Service dispatches an order to its settlement strategy and reconciles
// gateway callbacks with order state.
type Service struct {
	payments Repository
	gateway  Gateway
	cfg      Config
}

// NewService creates a payment Service.
func NewService(payments Repository, gateway Gateway, cfg Config) *Service {
	return &Service{
		payments: payments,
		gateway:  gateway,
		cfg:      cfg,
	}
}

// CheckMethod reports whether an order with the given total is eligible for
// settlement by method. Order assembly consults it before persisting
// anything, so an order that could never settle is rejected up front instead
// of being created and stranded.
func (s *Service) CheckMethod(method order.PaymentMethod, total decimal.Decimal) error {
	if method == order.MethodCOD {
		return s.checkOfflineBounds(total)
	}
	return nil
}

func (s *Service) checkOfflineBounds(total decimal.Decimal) error {
	if total.LessThan(s.cfg.CODMinAmount) ||
		(s.cfg.CODMaxAmount.IsPositive() && total.GreaterThan(s.cfg.CODMaxAmount)) {
		return &AmountOutOfBoundsError{
			Amount: total,
			Min:    s.cfg.CODMinAmount,
			Max:    s.cfg.CODMaxAmount,
		}
	}
	return nil
}

// Initiate starts settlement for a freshly created order, selecting the
// strategy by the order's payment method.
func (s *Service) Initiate(ctx context.Context, o *order.Order) (*Result, error) {
	switch o.PaymentMethod {
	case order.MethodCOD:
		return s.initiateOffline(ctx, o)
	case order.MethodGateway:
		return s.initiateGateway(ctx, o)
	default:
		return nil, errors.Errorf("unsupported payment method %q", o.PaymentMethod)
	}
}

// initiateOffline settles cash on delivery: the amount is bounds-checked, a
// deterministic surcharge is folded into the recorded amount, and the order
// is confirmed immediately in the same transaction as the payment insert.
// No external call is made.
func (s *Service) initiateOffline(ctx context.Context, o *order.Order) (*Result, error) {
	if err := s.checkOfflineBounds(o.Total); err != nil {
		return nil, err
	}

	surcharge := o.Total.Mul(s.cfg.CODSurchargeRate).Round(2)
	p := &Payment{
		ID:       uuid.New().String(),
		OrderID:  o.ID,
		Method:   o.PaymentMethod,
		Amount:   o.Total.Add(surcharge),
		Currency: o.Currency,
		Status:   StatusPending,
	}

	confirmed, err := s.payments.CreateOfflineConfirmed(ctx, p, "cash on delivery, surcharge "+surcharge.StringFixed(2))
	if err != nil {
		return nil, errors.Wrap(err, "create offline payment")
	}
	return &Result{Payment: p, Order: confirmed}, nil
}

// initiateGateway creates a remote payment intent and records a pending
// payment holding the external reference. The order stays PENDING until the
// signed callback is verified.
func (s *Service) initiateGateway(ctx context.Context, o *order.Order) (*Result, error) {
	intent, err := s.gateway.CreateIntent(ctx, o.Total, o.Currency, o.Number)
	if err != nil {
		return nil, errors.Wrap(err, "create payment intent")
	}

	p := &Payment{
		ID:             uuid.New().String(),
		OrderID:        o.ID,
		Method:         o.PaymentMethod,
		Amount:         o.Total,
		Currency:       o.Currency,
		Status:         StatusPending,
		GatewayOrderID: intent.OrderRef,
	}
	if err := s.payments.CreatePending(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create gateway payment")
	}
	return &Result{Payment: p, Order: o}, nil
}

// VerifyCallback handles the gateway's asynchronous settlement callback.
// The signature is recomputed from the shared secret and compared in
// constant time; caller-asserted success is never trusted. On a verified
// callback the payment is marked COMPLETED and the order confirmed in one
// atomic unit. A replay for an already-COMPLETED payment is a no-op success.
// On any mismatch or missing field the payment is marked FAILED (first
// attempt only) and the order is left untouched. References containing the
// signature separator are rejected outright: the gateway never issues them,
// and accepting one would let two different ref pairs share a MAC input.
func (s *Service) VerifyCallback(ctx context.Context, orderRef, paymentRef, signature string) (*order.Order, error) {
	if orderRef == "" || paymentRef == "" || signature == "" ||
		strings.ContainsRune(orderRef, '|') || strings.ContainsRune(paymentRef, '|') ||
		!VerifySignature([]byte(s.cfg.WebhookSecret), orderRef, paymentRef, signature) {
		if err := s.payments.FailGateway(ctx, orderRef, paymentRef); err != nil {
			return nil, errors.Wrap(err, "record failed verification")
		}
		return nil, ErrVerificationFailed
	}

	res, err := s.payments.CompleteGateway(ctx, orderRef, paymentRef, signature, "gateway payment verified")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Signed but unknown reference: nothing to credit.
			return nil, ErrVerificationFailed
		}
		// The repository re-checks the amount against the order total at
		// completion time and reports a mismatch as a verification failure.
		if errors.Is(err, ErrVerificationFailed) {
			return nil, ErrVerificationFailed
		}
		return nil, errors.Wrap(err, "complete gateway payment")
	}
	return res.Order, nil
}
