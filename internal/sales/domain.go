// Package sales owns the transactional sales ledger: pricing a cart into
// immutable line items, recording the sale atomically with its stock
// movements and invoice number, and compensating cancellations.
package sales

import "time"

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentDebit    PaymentMethod = "debit"
	PaymentCredit   PaymentMethod = "credit"
	PaymentQRIS     PaymentMethod = "qris"
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentDebit, PaymentCredit, PaymentQRIS, PaymentTransfer:
		return true
	}
	return false
}

// TransactionStatus enumerates ledger header states.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusRefunded  TransactionStatus = "refunded"
)

// ItemType tags a ledger line as a service or a product.
type ItemType string

const (
	ItemService ItemType = "service"
	ItemProduct ItemType = "product"
)

// Transaction is the immutable ledger header. Cancellation flips the status
// and compensates stock; the record itself is never deleted.
type Transaction struct {
	ID             int64             `json:"id"`
	InvoiceNumber  string            `json:"invoice_number"`
	CustomerID     *int64            `json:"customer_id,omitempty"`
	BarberID       *int64            `json:"barber_id,omitempty"`
	QueueID        *int64            `json:"queue_id,omitempty"`
	Subtotal       float64           `json:"subtotal"`
	DiscountAmount float64           `json:"discount_amount"`
	TaxAmount      float64           `json:"tax_amount"`
	TotalAmount    float64           `json:"total_amount"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	PaidAmount     float64           `json:"paid_amount"`
	ChangeAmount   float64           `json:"change_amount"`
	Status         TransactionStatus `json:"status"`
	Notes          *string           `json:"notes,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Items          []TransactionItem `json:"items,omitempty"`
}

// TransactionItem is one priced ledger line. Name and unit price are
// snapshots taken at sale time and stay fixed if the catalog changes later.
type TransactionItem struct {
	ID            int64    `json:"id"`
	TransactionID int64    `json:"transaction_id"`
	ItemType      ItemType `json:"item_type"`
	ItemID        int64    `json:"item_id"`
	ItemName      string   `json:"item_name"`
	Quantity      int64    `json:"quantity"`
	UnitPrice     float64  `json:"unit_price"`
	TotalPrice    float64  `json:"total_price"`
	Notes         *string  `json:"notes,omitempty"`
}

// TodayStats summarises the current day's completed sales for dashboards.
type TodayStats struct {
	TotalTransactions int     `json:"total_transactions"`
	TotalSales        float64 `json:"total_sales"`
	TotalItems        int64   `json:"total_items"`
}
