// Package jobs holds the asynq task definitions and workers for background
// work: salary slip notifications and the nightly low-stock scan.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskSlipCreated notifies a barber that a new salary slip is ready.
	TaskSlipCreated = "payroll:slip_created"
	// TaskSlipPaid notifies a barber that a salary slip was paid out.
	TaskSlipPaid = "payroll:slip_paid"
	// TaskLowStockScan checks the catalog for products under their
	// reorder level.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// SlipNotificationPayload carries what the notification handler needs. The
// barber's address is resolved at delivery time, not enqueue time, so a
// changed email still reaches the right inbox.
type SlipNotificationPayload struct {
	SlipID     int64   `json:"slip_id"`
	BarberID   int64   `json:"barber_id"`
	PeriodName string  `json:"period_name"`
	NetSalary  float64 `json:"net_salary"`
}

// NewSlipCreatedTask constructs a slip-created notification task.
func NewSlipCreatedTask(payload SlipNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSlipCreated, data, asynq.Queue(QueueDefault)), nil
}

// NewSlipPaidTask constructs a slip-paid notification task.
func NewSlipPaidTask(payload SlipNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSlipPaid, data, asynq.Queue(QueueDefault)), nil
}

// NewLowStockScanTask constructs the scheduled low-stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil, asynq.Queue(QueueDefault))
}
