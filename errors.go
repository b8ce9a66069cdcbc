package paylink

import (
	"errors"
	"fmt"
)

// Standard paylink error definitions

var (
	// ErrToolNotFound indicates the payment tool does not exist.
	ErrToolNotFound = errors.New("payment tool not found")

	// ErrWalletNotConnected indicates no wallet session is available.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrWalletRejected indicates the user declined a wallet prompt.
	// The orchestrator swallows it: the flow stays where it is.
	ErrWalletRejected = errors.New("wallet request rejected by user")

	// ErrChainMismatch indicates the wallet is on the wrong chain and
	// switching was denied or unsupported.
	ErrChainMismatch = errors.New("wallet chain does not match required chain")

	// ErrIntentExpired indicates the payment intent expired before the
	// transaction could be broadcast.
	ErrIntentExpired = errors.New("payment intent expired")

	// ErrPaymentRejected indicates the backend reported the payment as
	// failed.
	ErrPaymentRejected = errors.New("payment rejected by backend")

	// ErrConfirmationTimeout indicates the confirmation poll budget was
	// exhausted without reaching a terminal status.
	ErrConfirmationTimeout = errors.New("payment confirmation timed out")

	// ErrInvalidAmount indicates a malformed or non-representable amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnsupportedChain indicates an unrecognized chain id.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrFlowClosed indicates an action was posted to a closed flow.
	ErrFlowClosed = errors.New("payment flow closed")

	// ErrNotInitialized indicates Pay was called before Init.
	ErrNotInitialized = errors.New("sdk not initialized")
)

// FetchError is a failed backend lookup. It carries the HTTP status so
// callers and error messages can distinguish 404s from server failures.
type FetchError struct {
	// Op is the backend operation that failed (e.g., "fetch tool").
	Op string

	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int

	// Message is the backend's error message, if any.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: transport errors
// and 5xx responses are worth retrying, 4xx responses are not.
func (e *FetchError) Retryable() bool {
	return e.Status == 0 || e.Status >= 500
}
