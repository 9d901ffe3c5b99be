package shared

import "errors"

// Domain error taxonomy shared by every module. Services wrap these with
// fmt.Errorf("...: %w", err) so handlers can map them with errors.Is.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates an unknown catalog id, slip or transaction.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock indicates a product decrement would go below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict indicates a duplicate document or a lost race that the
	// caller may retry (sequence collision, duplicate payroll period).
	ErrConflict = errors.New("conflict")
	// ErrState indicates an invalid lifecycle transition.
	ErrState = errors.New("invalid state transition")
)

// UserSafeMessage returns a message safe to surface to clients. Storage and
// transport failures are reported generically; domain errors keep their text.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrState):
		return err.Error()
	default:
		return "internal error, please try again"
	}
}
