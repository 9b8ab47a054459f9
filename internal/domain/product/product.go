package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item. The catalog itself is owned elsewhere; the order
// pipeline reads price, name, SKU and stock from it and mutates stock only
// through the storage layer's conditional decrement.
type Product struct {
	ID    int64
	Name  string
	SKU   string
	Price decimal.Decimal
	Stock int
}

// Repository defines read operations on the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
