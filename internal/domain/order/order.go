package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects how an order's payment obligation is settled.
type PaymentMethod string

const (
	// MethodCOD is cash on delivery: settled offline, the order is confirmed
	// immediately with a pending payment record.
	MethodCOD PaymentMethod = "cod"
	// MethodGateway is settled through the external payment gateway; the
	// order stays pending until a verified callback arrives.
	MethodGateway PaymentMethod = "gateway"
)

// ParsePaymentMethod maps a wire value to a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case MethodCOD, MethodGateway:
		return PaymentMethod(s), true
	}
	return "", false
}

// Order is the order header plus its line items. Totals are computed
// server-side at creation and never accepted from the client. After creation
// the status is mutated only through Transition.
type Order struct {
	ID            int64
	Number        string
	UserID        int64
	Status        Status
	Currency      string
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	Notes         string

	// StockReserved records whether this order still holds decremented
	// stock. Cleared in the same transaction that restores stock on
	// cancellation, so a repeated cancel can never credit stock twice.
	StockReserved bool

	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a single order line. Name, SKU and unit price are snapshots taken
// at order time and are immutable afterwards, regardless of later catalog
// edits or deletions.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	ProductSKU  string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// LineTotal returns unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusHistory is one append-only audit trail entry. Rows are never updated
// or deleted.
type StatusHistory struct {
	ID        int64
	OrderID   int64
	From      Status
	To        Status
	Note      string
	Actor     string
	CreatedAt time.Time
}

// TransitionRequest carries one status change request.
type TransitionRequest struct {
	OrderID int64
	Target  Status
	Note    string
	Actor   string
}

// Repository defines persistence for orders. Implementations must make each
// method a single atomic unit: Create applies the conditional stock
// decrements together with the header, item and history inserts, and
// Transition validates against the currently persisted status under a row
// lock, appending exactly one history row (and restoring stock when
// cancelling) in the same transaction.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	History(ctx context.Context, orderID int64) ([]StatusHistory, error)
	Transition(ctx context.Context, req TransitionRequest) (*Order, error)
}
