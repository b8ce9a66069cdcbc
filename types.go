package paylink

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenOption describes one asset a payment tool accepts.
type TokenOption struct {
	// Symbol is the token symbol (e.g., "USDC", "ETH").
	Symbol string `json:"symbol"`

	// Address is the token contract address. Empty for the chain's
	// native currency.
	Address string `json:"address,omitempty"`

	// Decimals is the number of decimal places for the token.
	Decimals int `json:"decimals"`

	// Native marks the chain's native currency. Native and Address are
	// mutually exclusive: a native token has no contract address.
	Native bool `json:"native"`
}

// ToolMetadata is the immutable description of what is being paid for,
// as returned by the backend's public tool lookup. Read-only after
// creation.
type ToolMetadata struct {
	// ID is the payment tool identifier.
	ID string `json:"id"`

	// Name is an optional human-readable tool name.
	Name string `json:"name,omitempty"`

	// Amount is the display amount as a decimal string (e.g., "49.99").
	Amount string `json:"amount"`

	// Currency is the pricing currency code (e.g., "USD").
	Currency string `json:"currency"`

	// ChainID is the chain the payment must settle on.
	ChainID int64 `json:"chain_id"`

	// Recipient is the address payments are sent to.
	Recipient string `json:"recipient"`

	// Tokens lists the assets accepted for this tool.
	Tokens []TokenOption `json:"tokens"`
}

// RankedToken is a TokenOption with its resolved balance. Recomputed on
// every balance refresh and never persisted.
type RankedToken struct {
	TokenOption

	// Balance is the resolved balance in base units. Zero when the
	// balance could not be resolved.
	Balance *big.Int

	// Formatted is the balance as a human-readable decimal string.
	Formatted string

	// HasBalance reports whether a positive balance was resolved.
	HasBalance bool
}

// PaymentIntent is the server-issued record authorizing one payment
// attempt for an exact amount. Immutable; expires at ExpiresAt.
type PaymentIntent struct {
	// ID is the intent identifier.
	ID string `json:"id"`

	// ToolID is the tool this intent was created for.
	ToolID string `json:"tool_id"`

	// Token is the symbol of the token the intent binds.
	Token string `json:"token"`

	// Amount is the exact payment amount in base units, as a decimal
	// string (amounts can exceed uint64).
	Amount string `json:"amount"`

	// PayTo is the recipient address.
	PayTo string `json:"pay_to"`

	// ExpiresAt is when the intent stops being honored.
	ExpiresAt time.Time `json:"expires_at"`

	// Signature is the server signature authorizing the amount.
	Signature string `json:"signature"`
}

// Expired reports whether the intent's expiry has passed.
func (i *PaymentIntent) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// SubmittedPayment is the write-once record sent to the backend after a
// transaction is broadcast.
type SubmittedPayment struct {
	// TxHash is the broadcast transaction hash.
	TxHash string `json:"tx_hash"`

	// ChainID is the chain the transaction was sent on.
	ChainID int64 `json:"chain_id"`

	// Amount is the transferred amount in base units.
	Amount string `json:"amount"`

	// Token is the token contract address, or empty for native transfers.
	Token string `json:"token,omitempty"`

	// Recipient is the payment recipient address.
	Recipient string `json:"recipient"`

	// ToolID is the tool being paid.
	ToolID string `json:"tool_id"`
}

// SubmitResult is the backend's acknowledgement of a submitted payment.
type SubmitResult struct {
	PaymentID string        `json:"payment_id"`
	TxHash    string        `json:"tx_hash"`
	Status    PaymentStatus `json:"status"`
	Message   string        `json:"message,omitempty"`
}

// PaymentStatus is the backend's view of a submitted payment.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusConfirmed PaymentStatus = "confirmed"
	StatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether the status will not change on further polls.
func (s PaymentStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// PaymentStatusRecord is the polled view of a submitted payment.
type PaymentStatusRecord struct {
	// PaymentID is the backend payment identifier.
	PaymentID string `json:"payment_id"`

	// Status is one of pending, confirmed, failed.
	Status PaymentStatus `json:"status"`

	// TxHash is the transaction hash the record tracks.
	TxHash string `json:"tx_hash,omitempty"`

	// VerifiedAt is set once the payment reached a terminal status.
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// CallKind discriminates the two transaction shapes a payment produces.
type CallKind int

const (
	// CallNative is a native-currency transfer carrying value.
	CallNative CallKind = iota

	// CallContract is a token contract call carrying calldata.
	CallContract
)

// TxCall is the chain call a payment broadcasts: either a native transfer
// (Kind=CallNative, Value set, Data empty) or a token transfer
// (Kind=CallContract, To is the token contract, Data is the packed
// transfer calldata, Value is zero).
type TxCall struct {
	Kind  CallKind
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Callbacks is the orchestrator's observable side-effect surface. Each
// callback fires at most once per occurrence, in transition order, and
// only until the flow is closed. Nil callbacks are skipped.
type Callbacks struct {
	// OnOpen fires when the flow starts.
	OnOpen func()

	// OnClose fires when the flow is torn down.
	OnClose func()

	// OnStateChange fires on every state transition.
	OnStateChange func(state State)

	// OnTransactionSubmitted fires as soon as the transaction is
	// broadcast, before the flow reaches a terminal state.
	OnTransactionSubmitted func(txHash common.Hash)

	// OnSuccess fires once the backend confirms the payment.
	OnSuccess func(record PaymentStatusRecord)

	// OnError fires when the flow enters the error state.
	OnError func(err error)

	// OnGasWarning fires when the suggested gas price exceeds the
	// configured threshold. Advisory only; the flow continues.
	OnGasWarning func(gasPrice *big.Int)
}
