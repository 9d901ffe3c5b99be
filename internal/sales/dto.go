package sales

import "time"

// CartLineRequest is one requested cart line. Prices are never taken from the
// client; only the catalog reference and quantity matter.
type CartLineRequest struct {
	ItemType ItemType `json:"item_type" validate:"required,oneof=service product"`
	ItemID   int64    `json:"item_id" validate:"required,gt=0"`
	Quantity int64    `json:"quantity" validate:"required,gt=0"`
	Notes    *string  `json:"notes,omitempty"`
}

// CreateTransactionRequest is the POST /sales payload.
type CreateTransactionRequest struct {
	BarberID       *int64            `json:"barber_id,omitempty" validate:"omitempty,gt=0"`
	CustomerID     *int64            `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	QueueID        *int64            `json:"queue_id,omitempty" validate:"omitempty,gt=0"`
	Items          []CartLineRequest `json:"items" validate:"required,min=1,dive"`
	DiscountAmount float64           `json:"discount_amount" validate:"gte=0"`
	PaymentMethod  PaymentMethod     `json:"payment_method" validate:"required,oneof=cash debit credit qris transfer"`
	PaidAmount     float64           `json:"paid_amount" validate:"required,gte=0"`
	Notes          *string           `json:"notes,omitempty"`
}

// ListTransactionsRequest filters the ledger listing.
type ListTransactionsRequest struct {
	Status   *TransactionStatus
	BarberID *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}
