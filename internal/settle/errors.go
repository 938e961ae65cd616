package settle

import "errors"

var (
	// ErrPlanInactive indicates the plan is missing or deactivated.
	ErrPlanInactive = errors.New("settle: plan inactive")
	// ErrQuoteUnderflow indicates a positive USD price floored to a zero
	// currency amount. Settling it would grant access for free.
	ErrQuoteUnderflow = errors.New("settle: quoted amount underflows to zero")
	// ErrInsufficientPayment indicates the supplied native value does not
	// cover the quoted amount.
	ErrInsufficientPayment = errors.New("settle: insufficient payment")
	// ErrSlippageExceeded indicates the quoted amount moved above the
	// caller's stated maximum between quoting and paying.
	ErrSlippageExceeded = errors.New("settle: quoted amount exceeds caller maximum")
	// ErrTransferFailed indicates the treasury transfer could not be
	// executed; the payment is rolled back.
	ErrTransferFailed = errors.New("settle: transfer failed")
	// ErrInvalidArgument indicates a missing user, invoice, or amount.
	ErrInvalidArgument = errors.New("settle: invalid argument")
)
