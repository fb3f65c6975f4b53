package domain

import "errors"

var (
	// ErrDuplicateCheckin marks the expected one-per-day conflict. It is a
	// distinguished outcome, not a system failure.
	ErrDuplicateCheckin = errors.New("member already checked in today")

	ErrMemberNotFound     = errors.New("member not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrPaymentNotFound    = errors.New("payment not found")

	// ErrAlreadyPaid marks an idempotent replay of a payment confirmation.
	ErrAlreadyPaid = errors.New("payment already reconciled")
)

// ErrValidation is a field-level input rejection.
type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }
