package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no API key matches the given hash.
var ErrNotFound = errors.New("api key not found")

// Role determines what the key's user may do with orders: customers read
// and cancel their own, staff drive fulfilment transitions on any order.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// Key is a stored API key. Only the HMAC-SHA256 hash of the key material is
// persisted.
type Key struct {
	ID      string
	KeyHash string
	Name    string
	UserID  int64
	Role    Role
}

// Repository provides lookup of API keys by their hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Key, error)
}
