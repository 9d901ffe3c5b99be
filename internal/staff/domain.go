// Package staff provides the read-only barber profile provider used by the
// payroll and reporting modules.
package staff

import "time"

// BarberStatus enumerates profile states.
type BarberStatus string

const (
	BarberStatusActive   BarberStatus = "active"
	BarberStatusInactive BarberStatus = "inactive"
)

// Barber is a staff member earning base salary plus commission.
type Barber struct {
	ID             int64        `json:"id"`
	UserID         *int64       `json:"user_id,omitempty"`
	Name           string       `json:"name"`
	Phone          string       `json:"phone,omitempty"`
	Email          string       `json:"email,omitempty"`
	Status         BarberStatus `json:"status"`
	CommissionRate float64      `json:"commission_rate"`
	BaseSalary     float64      `json:"base_salary"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
