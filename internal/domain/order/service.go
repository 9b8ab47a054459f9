package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vishwas0229/riya-collections/internal/domain/product"
)

// maxNumberAttempts bounds the retry loop on order number collisions. With
// the atomic per-day counter a collision only happens if the sequence table
// was edited out from under us.
const maxNumberAttempts = 3

// Actor identifies the authenticated caller for ownership checks and the
// audit trail.
type Actor struct {
	UserID int64
	Staff  bool
}

func (a Actor) label() string {
	if a.Staff {
		return fmt.Sprintf("staff:%d", a.UserID)
	}
	return fmt.Sprintf("user:%d", a.UserID)
}

// CreateItem is one requested order line. UnitPrice is accepted on the wire
// for client compatibility but deliberately ignored: the catalog price is
// authoritative.
type CreateItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateRequest is the input for creating an order.
type CreateRequest struct {
	UserID        int64
	PaymentMethod string
	Notes         string
	Items         []CreateItem
}

// PricingConfig holds the server-side pricing inputs applied on top of the
// item subtotal.
type PricingConfig struct {
	Currency    string
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// SettlementCheck reports whether an order with the given total can be
// settled by method. Create consults it after pricing and before persisting,
// so an order that could never settle is rejected with nothing written.
type SettlementCheck func(method PaymentMethod, total decimal.Decimal) error

// Service assembles, reads and transitions orders.
type Service struct {
	products   product.Repository
	orders     Repository
	numbers    *Generator
	pricing    PricingConfig
	settleable SettlementCheck
}

// NewService creates an order Service with the required dependencies.
// settleable may be nil, in which case every priced order is accepted.
func NewService(
	products product.Repository,
	orders Repository,
	numbers *Generator,
	pricing PricingConfig,
	settleable SettlementCheck,
) *Service {
	return &Service{
		products:   products,
		orders:     orders,
		numbers:    numbers,
		pricing:    pricing,
		settleable: settleable,
	}
}

// Create validates the request, prices every line from the authoritative
// catalog, and persists the order atomically with the stock decrements. On
// success the returned order is fully hydrated and PENDING; on any failure
// no stock is held and no rows exist.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	// Shape validation accumulates every violation instead of failing fast.
	var verr ValidationError
	if req.UserID <= 0 {
		verr.add("user_id", "required")
	}
	method, ok := ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		verr.add("payment_method", fmt.Sprintf("must be one of %q, %q", MethodCOD, MethodGateway))
	}
	if len(req.Items) == 0 {
		verr.add("items", "at least one item is required")
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			verr.add(fmt.Sprintf("items[%d].product_id", i), "required")
		}
		if item.Quantity < 1 {
			verr.add(fmt.Sprintf("items[%d].quantity", i), "must be a positive integer")
		}
	}
	if len(verr.Violations) > 0 {
		return nil, &verr
	}

	// Batch fetch the catalog rows for pricing and the stock pre-check.
	ids := make([]int64, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Snapshot each line from the catalog. The stock check here is a
	// fast-fail courtesy; the conditional decrement inside the creation
	// transaction is what actually prevents overselling.
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if p.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Requested: item.Quantity,
				Available: p.Stock,
			}
		}
		items[i] = Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			ProductSKU:  p.SKU,
			UnitPrice:   p.Price,
			Quantity:    item.Quantity,
		}
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(s.pricing.TaxRate).Round(2)
	total := subtotal.Add(s.pricing.ShippingFee).Add(tax)

	if s.settleable != nil {
		if err := s.settleable(method, total); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "generate order number")
		}

		o := &Order{
			Number:        number,
			UserID:        req.UserID,
			Status:        StatusPending,
			Currency:      s.pricing.Currency,
			Subtotal:      subtotal,
			Shipping:      s.pricing.ShippingFee,
			Tax:           tax,
			Total:         total,
			PaymentMethod: method,
			Notes:         req.Notes,
			StockReserved: true,
			Items:         items,
		}
		err = s.orders.Create(ctx, o)
		if errors.Is(err, ErrNumberConflict) {
			continue
		}
		if err != nil {
			var ise *InsufficientStockError
			if errors.As(err, &ise) {
				return nil, ise
			}
			return nil, errors.Wrap(err, "create order")
		}
		return o, nil
	}

	return nil, errors.Wrapf(ErrNumberConflict, "after %d attempts", maxNumberAttempts)
}

// Get returns the order when the actor owns it or is staff. Orders belonging
// to other users read as not found so their existence is not revealed.
func (s *Service) Get(ctx context.Context, id int64, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && o.UserID != actor.UserID {
		return nil, ErrNotFound
	}
	return o, nil
}

// History returns the audit trail for an order, subject to the same
// visibility rule as Get.
func (s *Service) History(ctx context.Context, id int64, actor Actor) ([]StatusHistory, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.orders.History(ctx, id)
}

// Release cancels a freshly created order whose settlement could not be
// initiated, restoring its stock in the same transaction. It runs as a
// system action so the audit trail distinguishes it from a user cancel.
func (s *Service) Release(ctx context.Context, id int64, note string) (*Order, error) {
	return s.orders.Transition(ctx, TransitionRequest{
		OrderID: id,
		Target:  StatusCancelled,
		Note:    note,
		Actor:   "system:payment",
	})
}

// Transition drives the order to target. Staff may request any transition in
// the legal table; customers may only cancel their own orders. The
// legality check, history append and stock restore all happen inside the
// repository's transaction against the currently persisted status.
func (s *Service) Transition(ctx context.Context, id int64, target Status, note string, actor Actor) (*Order, error) {
	if !actor.Staff {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if o.UserID != actor.UserID {
			return nil, ErrNotFound
		}
		if target != StatusCancelled {
			return nil, ErrForbidden
		}
	}
	return s.orders.Transition(ctx, TransitionRequest{
		OrderID: id,
		Target:  target,
		Note:    note,
		Actor:   actor.label(),
	})
}
