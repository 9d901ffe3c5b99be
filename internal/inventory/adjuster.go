// Package inventory owns every mutation of product stock. Other modules apply
// signed deltas through Adjuster; direct stock writes are not permitted.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	"github.com/pangkas-pos/pangkas/internal/platform/db"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// Adjuster applies signed stock deltas with a hard floor at zero. It operates
// over the caller's transaction so a sale's stock movement commits or rolls
// back together with the ledger rows.
type Adjuster struct {
	db db.DBTX
}

// NewAdjuster constructs an Adjuster over a pool or an open transaction.
func NewAdjuster(conn db.DBTX) *Adjuster {
	return &Adjuster{db: conn}
}

// Apply adds delta to the product's stock. Negative deltas are sales,
// positive deltas are compensating reversals. A delta that would drive stock
// below zero fails with shared.ErrInsufficientStock and writes nothing.
func (a *Adjuster) Apply(ctx context.Context, productID int64, delta int64) (int64, error) {
	if delta == 0 {
		return 0, fmt.Errorf("inventory: zero delta for product %d: %w", productID, shared.ErrValidation)
	}
	var stock int64
	err := a.db.QueryRow(ctx, `UPDATE products
SET stock = stock + $2, updated_at = NOW()
WHERE id = $1 AND stock + $2 >= 0
RETURNING stock`, productID, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("inventory: adjust product %d: %w", productID, err)
	}

	// No row updated: either the product does not exist or the guard refused
	// the decrement. Distinguish so callers can report the right failure.
	var exists bool
	if err := a.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("inventory: check product %d: %w", productID, err)
	}
	if !exists {
		return 0, fmt.Errorf("inventory: product %d: %w", productID, shared.ErrNotFound)
	}
	return 0, fmt.Errorf("inventory: product %d would go below zero: %w", productID, shared.ErrInsufficientStock)
}

// LowStock lists active products at or below their reorder level.
func (a *Adjuster) LowStock(ctx context.Context) ([]catalog.Product, error) {
	rows, err := a.db.Query(ctx, `SELECT id, name, COALESCE(sku, ''), price, stock, min_stock, is_active, created_at, updated_at
FROM products WHERE is_active AND stock <= min_stock ORDER BY stock, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Stock, &p.MinStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
