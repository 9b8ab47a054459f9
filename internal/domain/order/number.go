package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// SequenceRepository hands out strictly increasing values for a given day.
// Implementations must increment atomically at the storage layer (a single
// upsert-and-return); deriving the next value from a row count would race.
type SequenceRepository interface {
	Next(ctx context.Context, day string) (int64, error)
}

// Generator produces human-readable order numbers: a fixed prefix, the UTC
// date as yyyymmdd, and a zero-padded per-day sequence. Two concurrent calls
// never produce the same value because the sequence comes from an atomic
// counter shared through the backing store.
type Generator struct {
	prefix string
	seqs   SequenceRepository
	now    func() time.Time
}

// NewGenerator creates a Generator with the given number prefix.
func NewGenerator(prefix string, seqs SequenceRepository) *Generator {
	return &Generator{
		prefix: prefix,
		seqs:   seqs,
		now:    time.Now,
	}
}

// Next returns the next order number for today.
func (g *Generator) Next(ctx context.Context) (string, error) {
	day := g.now().UTC().Format("20060102")
	n, err := g.seqs.Next(ctx, day)
	if err != nil {
		return "", errors.Wrap(err, "next sequence")
	}
	return fmt.Sprintf("%s%s%04d", g.prefix, day, n), nil
}
