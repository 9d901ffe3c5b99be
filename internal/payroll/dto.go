package payroll

// GenerateRequest is the POST /payroll/generate payload.
type GenerateRequest struct {
	BarberID int64 `json:"barber_id" validate:"required,gt=0"`
	Year     int   `json:"year" validate:"required,min=2020,max=2100"`
	Month    int   `json:"month" validate:"required,min=1,max=12"`
}

// UpdateSlipRequest patches a draft slip. Nil fields keep their current
// value; commission is never patchable.
type UpdateSlipRequest struct {
	BaseSalary       *float64 `json:"base_salary,omitempty" validate:"omitempty,gte=0"`
	Bonus            *float64 `json:"bonus,omitempty" validate:"omitempty,gte=0"`
	Overtime         *float64 `json:"overtime,omitempty" validate:"omitempty,gte=0"`
	DeductionLate    *float64 `json:"deduction_late,omitempty" validate:"omitempty,gte=0"`
	DeductionAbsence *float64 `json:"deduction_absence,omitempty" validate:"omitempty,gte=0"`
	DeductionOther   *float64 `json:"deduction_other,omitempty" validate:"omitempty,gte=0"`
	DeductionNote    *string  `json:"deduction_note,omitempty"`
	Note             *string  `json:"note,omitempty"`
}

// MarkPaidRequest is the POST /payroll/{id}/pay payload.
type MarkPaidRequest struct {
	PaidBy string `json:"paid_by" validate:"required,max=255"`
}

// ListSlipsRequest filters the slip listing.
type ListSlipsRequest struct {
	BarberID *int64
	Year     *int
	Month    *int
	Status   *SlipStatus
	Page     int
	PerPage  int
}
