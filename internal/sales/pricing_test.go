package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pangkas-pos/pangkas/internal/catalog"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

type stubCatalog struct {
	services map[int64]catalog.Service
	products map[int64]catalog.Product
}

func (c stubCatalog) GetService(_ context.Context, id int64) (*catalog.Service, error) {
	s, ok := c.services[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (c stubCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func testCatalog() stubCatalog {
	return stubCatalog{
		services: map[int64]catalog.Service{
			1: {ID: 1, Name: "Potong Rambut", Price: 150000},
		},
		products: map[int64]catalog.Product{
			10: {ID: 10, Name: "Pomade", Price: 35000, Stock: 10},
		},
	}
}

func TestPriceCartTotals(t *testing.T) {
	lines := []CartLineRequest{
		{ItemType: ItemService, ItemID: 1, Quantity: 1},
		{ItemType: ItemProduct, ItemID: 10, Quantity: 1},
	}

	cart, err := PriceCart(context.Background(), testCatalog(), lines, 15000, 200000, TaxConfig{})
	require.NoError(t, err)

	require.InDelta(t, 185000, cart.Subtotal, 0.001)
	require.InDelta(t, 15000, cart.DiscountAmount, 0.001)
	require.InDelta(t, 0, cart.TaxAmount, 0.001)
	require.InDelta(t, 170000, cart.TotalAmount, 0.001)
	require.InDelta(t, 30000, cart.ChangeAmount, 0.001)

	require.Len(t, cart.Items, 2)
	require.Equal(t, "Potong Rambut", cart.Items[0].ItemName)
	require.InDelta(t, 150000, cart.Items[0].UnitPrice, 0.001)
	require.Equal(t, "Pomade", cart.Items[1].ItemName)
}

func TestPriceCartTaxOnDiscountedSubtotal(t *testing.T) {
	lines := []CartLineRequest{
		{ItemType: ItemService, ItemID: 1, Quantity: 1},
		{ItemType: ItemProduct, ItemID: 10, Quantity: 2},
	}

	cart, err := PriceCart(context.Background(), testCatalog(), lines, 20000, 250000, TaxConfig{Enabled: true, Rate: 10})
	require.NoError(t, err)

	// subtotal 220000, taxable base 200000
	require.InDelta(t, 220000, cart.Subtotal, 0.001)
	require.InDelta(t, 20000, cart.TaxAmount, 0.001)
	require.InDelta(t, 220000, cart.TotalAmount, 0.001)
	require.InDelta(t, 30000, cart.ChangeAmount, 0.001)
}

func TestPriceCartTaxDisabledRateIgnored(t *testing.T) {
	lines := []CartLineRequest{{ItemType: ItemService, ItemID: 1, Quantity: 1}}

	cart, err := PriceCart(context.Background(), testCatalog(), lines, 0, 150000, TaxConfig{Enabled: false, Rate: 10})
	require.NoError(t, err)
	require.InDelta(t, 0, cart.TaxAmount, 0.001)
	require.InDelta(t, 150000, cart.TotalAmount, 0.001)
}

func TestPriceCartMultipliesQuantity(t *testing.T) {
	lines := []CartLineRequest{{ItemType: ItemProduct, ItemID: 10, Quantity: 3}}

	cart, err := PriceCart(context.Background(), testCatalog(), lines, 0, 105000, TaxConfig{})
	require.NoError(t, err)
	require.InDelta(t, 105000, cart.Subtotal, 0.001)
	require.InDelta(t, 105000, cart.Items[0].TotalPrice, 0.001)
	require.InDelta(t, 0, cart.ChangeAmount, 0.001)
}

func TestPriceCartValidation(t *testing.T) {
	cases := []struct {
		name     string
		lines    []CartLineRequest
		discount float64
		paid     float64
	}{
		{
			name: "empty cart",
			paid: 100000,
		},
		{
			name:  "zero quantity",
			lines: []CartLineRequest{{ItemType: ItemService, ItemID: 1, Quantity: 0}},
			paid:  100000,
		},
		{
			name:     "negative discount",
			lines:    []CartLineRequest{{ItemType: ItemService, ItemID: 1, Quantity: 1}},
			discount: -1,
			paid:     200000,
		},
		{
			name:     "discount exceeds subtotal",
			lines:    []CartLineRequest{{ItemType: ItemService, ItemID: 1, Quantity: 1}},
			discount: 200000,
			paid:     200000,
		},
		{
			name:  "underpaid",
			lines: []CartLineRequest{{ItemType: ItemService, ItemID: 1, Quantity: 1}},
			paid:  100000,
		},
		{
			name:  "unknown item type",
			lines: []CartLineRequest{{ItemType: ItemType("voucher"), ItemID: 1, Quantity: 1}},
			paid:  100000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PriceCart(context.Background(), testCatalog(), tc.lines, tc.discount, tc.paid, TaxConfig{})
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestPriceCartUnknownCatalogItem(t *testing.T) {
	lines := []CartLineRequest{{ItemType: ItemProduct, ItemID: 999, Quantity: 1}}

	_, err := PriceCart(context.Background(), testCatalog(), lines, 0, 100000, TaxConfig{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
