package parking

import "errors"

// Caller-facing errors. Every one of these is non-fatal and leaves engine
// state exactly as it was before the call.
var (
	ErrAlreadyParked   = errors.New("holder already has an active ticket")
	ErrSlotsFull       = errors.New("no free slots in category")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrTicketNotActive = errors.New("ticket already retired")
	ErrUnderPayment    = errors.New("amount tendered is below the fee due")
	ErrInvalidRate     = errors.New("rate must be non-negative")
	ErrInvalidAmount   = errors.New("amount must be non-negative")
	ErrNotOwner        = errors.New("caller is not the owner")
)

// ErrInvariantViolation is fatal for the affected category: once occupancy
// bookkeeping is provably broken the category refuses further mutation.
// Valid external input can never cause it.
var ErrInvariantViolation = errors.New("internal invariant violated")
