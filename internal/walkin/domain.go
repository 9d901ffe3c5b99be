// Package walkin manages the walk-in customer queue: numbered entries per
// day, barber assignment and the waiting -> in_progress -> settled lifecycle.
// Completion through a sale is owned by the sales package, which settles the
// entry inside the sale's own transaction.
package walkin

import "time"

// Status enumerates queue entry states.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is an allowed lifecycle step.
// Waiting entries can start or be cancelled; in-progress entries can finish
// or be cancelled; terminal states accept nothing.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusWaiting:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Entry is one walk-in queue ticket.
type Entry struct {
	ID           int64      `json:"id"`
	QueueNumber  string     `json:"queue_number"`
	CustomerID   *int64     `json:"customer_id,omitempty"`
	BarberID     *int64     `json:"barber_id,omitempty"`
	CustomerName string     `json:"customer_name"`
	ServiceIDs   []int64    `json:"service_ids"`
	Notes        *string    `json:"notes,omitempty"`
	Status       Status     `json:"status"`
	CalledAt     *time.Time `json:"called_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TodayStats counts today's entries per status for the dashboard board.
type TodayStats struct {
	Waiting    int `json:"waiting"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}
