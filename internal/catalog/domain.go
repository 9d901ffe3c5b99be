// Package catalog provides read access to the service and product catalog.
// Prices and names are snapshotted by the sales module at transaction time;
// product stock is mutated only through the inventory package.
package catalog

import "time"

// Service is a priced barbershop service (haircut, shave, ...).
type Service struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Product is a stock-bearing retail catalog entry.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku,omitempty"`
	Price     float64   `json:"price"`
	Stock     int64     `json:"stock"`
	MinStock  int64     `json:"min_stock"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BelowMinStock reports whether the product is at or under its reorder level.
func (p Product) BelowMinStock() bool {
	return p.Stock <= p.MinStock
}
