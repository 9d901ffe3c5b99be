// Package payroll owns barber salary slips: generating a frozen monthly
// snapshot of base salary plus commission, the draft -> approved -> paid
// lifecycle, and payroll statistics.
package payroll

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// SlipStatus enumerates salary slip lifecycle states.
type SlipStatus string

const (
	SlipDraft    SlipStatus = "draft"
	SlipApproved SlipStatus = "approved"
	SlipPaid     SlipStatus = "paid"
)

// Valid reports whether s is a known status.
func (s SlipStatus) Valid() bool {
	switch s {
	case SlipDraft, SlipApproved, SlipPaid:
		return true
	}
	return false
}

// Slip is one barber's salary slip for a calendar month. Commission and the
// performance counters are snapshots taken at generation time and never
// recomputed implicitly; refreshing them means delete and regenerate.
type Slip struct {
	ID         int64      `json:"id"`
	BarberID   int64      `json:"barber_id"`
	BarberName string     `json:"barber_name,omitempty"`
	Year       int        `json:"year"`
	Month      int        `json:"month"`
	PeriodName string     `json:"period_name"`
	Status     SlipStatus `json:"status"`

	BaseSalary      float64 `json:"base_salary"`
	CommissionTotal float64 `json:"commission_total"`
	Bonus           float64 `json:"bonus"`
	Overtime        float64 `json:"overtime"`

	DeductionLate    float64 `json:"deduction_late"`
	DeductionAbsence float64 `json:"deduction_absence"`
	DeductionOther   float64 `json:"deduction_other"`
	DeductionNote    *string `json:"deduction_note,omitempty"`

	TotalIncome    float64 `json:"total_income"`
	TotalDeduction float64 `json:"total_deduction"`
	NetSalary      float64 `json:"net_salary"`

	TotalCustomers         int     `json:"total_customers"`
	TotalServices          int     `json:"total_services"`
	TotalTransactionAmount float64 `json:"total_transaction_amount"`

	Note      *string    `json:"note,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	PaidBy    *string    `json:"paid_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Recalculate refreshes the derived totals from the component amounts. The
// commission snapshot is part of income but never changes here.
func (s *Slip) Recalculate() {
	s.TotalIncome = s.BaseSalary + s.CommissionTotal + s.Bonus + s.Overtime
	s.TotalDeduction = s.DeductionLate + s.DeductionAbsence + s.DeductionOther
	s.NetSalary = s.TotalIncome - s.TotalDeduction
}

// Statistics aggregates one year of slips for the dashboard.
type Statistics struct {
	TotalSlips   int     `json:"total_slips"`
	TotalPaid    float64 `json:"total_paid"`
	TotalPending float64 `json:"total_pending"`
	Year         int     `json:"year"`
}

// PeriodBreakdown is the commission base observed over one payroll period.
type PeriodBreakdown struct {
	GrossAmount  float64 `json:"gross_amount"`
	Customers    int     `json:"customers"`
	ServiceItems int     `json:"service_items"`
}

// Commission applies a percentage rate to the gross completed-sales amount.
func Commission(gross, rate float64) float64 {
	return gross * rate / 100
}

// Bulan-bulan dalam Bahasa Indonesia untuk period_name slip gaji.
var monthNames = [13]string{
	"", "Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// PeriodName renders "Agustus 2026" style period labels.
func PeriodName(year, month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d-%02d", year, month)
	}
	return fmt.Sprintf("%s %d", monthNames[month], year)
}

// PeriodBounds returns the inclusive start and exclusive end of a calendar
// month in local time.
func PeriodBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 1, 0)
}

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount as "Rp 3.500.000" for notifications.
func FormatRupiah(amount float64) string {
	return rupiahPrinter.Sprintf("Rp %v", number.Decimal(amount, number.MaxFractionDigits(0)))
}
