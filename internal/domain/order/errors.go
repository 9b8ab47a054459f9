package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when an order does not exist or the caller is
	// not allowed to see it.
	ErrNotFound = errors.New("order not found")
	// ErrNumberConflict is returned by the repository when the generated
	// order number already exists. The service retries with a fresh number.
	ErrNumberConflict = errors.New("order number already exists")
	// ErrForbidden is returned when the acting user may not perform the
	// requested operation on this order.
	ErrForbidden = errors.New("operation not permitted")
)

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every shape violation in the request at once, so
// callers can render structured errors instead of fixing one field at a time.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add records a violation. Used by the service while accumulating.
func (e *ValidationError) add(field, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: message})
}

// InsufficientStockError identifies the product that could not cover the
// requested quantity. No part of the order is created when it is returned.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ProductNotFoundError indicates a requested product does not exist in the
// catalog.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidTransitionError indicates a status change not present in the legal
// transition table. The order and its history are left unchanged.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
