package points

import "fmt"

// Error is a coordinator failure with a stable machine-readable code and a
// human-readable message. The coordinator is the sole translation boundary:
// storage and engine conditions are converted here, never passed through raw.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation failures. Each aborts the whole operation before any mutation.
var (
	ErrInvalidEventCode   = &Error{Code: "invalid_event_code", Message: "unrecognized transaction type"}
	ErrBelowMinimum       = &Error{Code: "below_minimum_amount", Message: "grant amount is below the policy minimum"}
	ErrAboveMaximum       = &Error{Code: "above_maximum_amount", Message: "grant amount exceeds the policy maximum"}
	ErrBalanceCapExceeded = &Error{Code: "balance_cap_exceeded", Message: "resulting balance would exceed the holding cap"}
	ErrExpiryTooSoon      = &Error{Code: "expiry_too_soon", Message: "expiry must be at least one day out"}
	ErrExpiryTooFar       = &Error{Code: "expiry_too_far", Message: "expiry must be less than five years out"}

	ErrMemberNotFound = &Error{Code: "not_found", Message: "member not found"}
	ErrWalletNotFound = &Error{Code: "not_found", Message: "wallet not found"}
	ErrSpendNotFound  = &Error{Code: "not_found", Message: "no spend recorded for that order reference"}

	ErrWalletAlreadyUsed = &Error{Code: "already_used", Message: "wallet has already been drawn against"}
	ErrWalletTerminal    = &Error{Code: "already_terminal", Message: "wallet is cancelled or expired"}

	ErrInsufficientBalance = &Error{Code: "insufficient_balance", Message: "point balance is insufficient"}
	ErrOverReversal        = &Error{Code: "over_reversal", Message: "reversal exceeds the remaining approved amount"}
	ErrMalformedRequest    = &Error{Code: "malformed_request", Message: "request payload is invalid"}
)

// CodeUnexpected labels internal failures surfaced to callers opaquely.
const CodeUnexpected = "unexpected"
