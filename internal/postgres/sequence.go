package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vishwas0229/riya-collections/internal/domain/order"
)

// The upsert increments and returns in one statement, so concurrent callers
// are serialized by the row lock and never observe the same value.
const nextSequenceSQL = `INSERT INTO order_day_sequences (day, value) VALUES ($1, 1)
	ON CONFLICT (day) DO UPDATE SET value = order_day_sequences.value + 1
	RETURNING value`

var _ order.SequenceRepository = (*SequenceRepository)(nil)

// SequenceRepository implements the per-day atomic counter backing order
// number generation.
type SequenceRepository struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository returns a SequenceRepository that uses the given pool.
func NewSequenceRepository(pool *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{pool: pool}
}

// Next returns the next sequence value for the given day.
func (r *SequenceRepository) Next(ctx context.Context, day string) (int64, error) {
	var value int64
	if err := r.pool.QueryRow(ctx, nextSequenceSQL, day).Scan(&value); err != nil {
		return 0, fmt.Errorf("incrementing sequence for %s: %w", day, err)
	}
	return value, nil
}
