// Package sequence mints unique, monotonically increasing document numbers
// scoped to a (series, date) pair: invoice numbers and walk-in queue numbers.
//
// The counter lives in the doc_counters table and advances with a single
// INSERT ... ON CONFLICT DO UPDATE ... RETURNING, so two concurrent callers
// serialize on the counter row instead of racing a count-rows-plus-one read.
// Under repeatable read a loser surfaces a serialization failure, which the
// caller retries with a fresh transaction.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/pangkas-pos/pangkas/internal/platform/db"
)

// Series names used by the application.
const (
	SeriesInvoice = "invoice"
	SeriesQueue   = "queue"
)

// Generator allocates per-day counter values inside the caller's transaction.
type Generator struct {
	db db.DBTX
}

// NewGenerator constructs a Generator over a pool or an open transaction.
func NewGenerator(conn db.DBTX) *Generator {
	return &Generator{db: conn}
}

// Next returns the next counter value for (series, scopeDate). The first call
// of a new scope date returns 1.
func (g *Generator) Next(ctx context.Context, series string, scopeDate time.Time) (int64, error) {
	if series == "" {
		return 0, fmt.Errorf("sequence: series required")
	}
	var value int64
	err := g.db.QueryRow(ctx, `INSERT INTO doc_counters (series, scope_date, value)
VALUES ($1, $2, 1)
ON CONFLICT (series, scope_date) DO UPDATE SET value = doc_counters.value + 1
RETURNING value`, series, scopeDate.Format("2006-01-02")).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s: %w", series, err)
	}
	return value, nil
}

// FormatInvoice renders an invoice number such as INV-20260115-0001.
func FormatInvoice(scopeDate time.Time, n int64) string {
	return fmt.Sprintf("INV-%s-%04d", scopeDate.Format("20060102"), n)
}

// FormatQueue renders a queue number such as A001.
func FormatQueue(prefix string, n int64) string {
	if prefix == "" {
		prefix = "A"
	}
	return fmt.Sprintf("%s%03d", prefix, n)
}
