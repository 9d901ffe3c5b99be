package walkin

import "time"

// RegisterRequest is the POST /walkin payload.
type RegisterRequest struct {
	CustomerID   *int64  `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	BarberID     *int64  `json:"barber_id,omitempty" validate:"omitempty,gt=0"`
	CustomerName string  `json:"customer_name" validate:"required,max=255"`
	ServiceIDs   []int64 `json:"service_ids" validate:"required,min=1,dive,gt=0"`
	Notes        *string `json:"notes,omitempty"`
}

// UpdateStatusRequest is the POST /walkin/{id}/status payload.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=waiting in_progress completed cancelled"`
}

// ListRequest filters the queue listing. Defaults to today's entries.
type ListRequest struct {
	Status   *Status
	BarberID *int64
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PerPage  int
}
