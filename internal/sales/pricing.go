package sales

import (
	"context"
	"fmt"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// CatalogReader resolves cart references to their current canonical
// name and price. Pricing reads through the sale's own transaction so the
// snapshot and the stock movement see the same catalog state.
type CatalogReader interface {
	GetService(ctx context.Context, id int64) (*catalog.Service, error)
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
}

// TaxConfig carries the externally configured tax switch and rate (percent).
type TaxConfig struct {
	Enabled bool
	Rate    float64
}

// PricedCart is the fully resolved result of pricing a cart.
type PricedCart struct {
	Items          []TransactionItem
	Subtotal       float64
	DiscountAmount float64
	TaxAmount      float64
	TotalAmount    float64
	PaidAmount     float64
	ChangeAmount   float64
}

// PriceCart resolves each line against the catalog, snapshots name and unit
// price, and computes the aggregate totals:
//
//	total = subtotal - discount + tax
//	change = paid - total (must be >= 0)
//
// Tax applies to the discounted subtotal and is zero when disabled.
func PriceCart(ctx context.Context, reader CatalogReader, lines []CartLineRequest, discount, paid float64, tax TaxConfig) (PricedCart, error) {
	if len(lines) == 0 {
		return PricedCart{}, fmt.Errorf("sales: empty cart: %w", shared.ErrValidation)
	}
	if discount < 0 {
		return PricedCart{}, fmt.Errorf("sales: negative discount: %w", shared.ErrValidation)
	}

	cart := PricedCart{DiscountAmount: discount, PaidAmount: paid}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return PricedCart{}, fmt.Errorf("sales: quantity must be positive: %w", shared.ErrValidation)
		}

		var name string
		var unitPrice float64
		switch line.ItemType {
		case ItemService:
			svc, err := reader.GetService(ctx, line.ItemID)
			if err != nil {
				return PricedCart{}, err
			}
			name, unitPrice = svc.Name, svc.Price
		case ItemProduct:
			prod, err := reader.GetProduct(ctx, line.ItemID)
			if err != nil {
				return PricedCart{}, err
			}
			name, unitPrice = prod.Name, prod.Price
		default:
			return PricedCart{}, fmt.Errorf("sales: unknown item type %q: %w", line.ItemType, shared.ErrValidation)
		}

		totalPrice := unitPrice * float64(line.Quantity)
		cart.Subtotal += totalPrice
		cart.Items = append(cart.Items, TransactionItem{
			ItemType:   line.ItemType,
			ItemID:     line.ItemID,
			ItemName:   name,
			Quantity:   line.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
			Notes:      line.Notes,
		})
	}

	if discount > cart.Subtotal {
		return PricedCart{}, fmt.Errorf("sales: discount exceeds subtotal: %w", shared.ErrValidation)
	}
	if tax.Enabled && tax.Rate > 0 {
		cart.TaxAmount = (cart.Subtotal - discount) * tax.Rate / 100
	}
	cart.TotalAmount = cart.Subtotal - discount + cart.TaxAmount
	cart.ChangeAmount = paid - cart.TotalAmount
	if cart.ChangeAmount < 0 {
		return PricedCart{}, fmt.Errorf("sales: paid amount %.0f below total %.0f: %w", paid, cart.TotalAmount, shared.ErrValidation)
	}
	return cart, nil
}
