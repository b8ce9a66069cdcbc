package paylink

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// WalletProvider is the wallet capability the orchestrator drives. It is
// consumed, never implemented, by the core: the evm package provides an
// RPC-backed implementation, and tests supply fakes. Private keys stay on
// the provider's side of the boundary.
//
// Connect may return before the session is established: wallets complete
// the handshake in their own UI, so the orchestrator observes completion
// by polling Connected.
type WalletProvider interface {
	// Connected reports whether a wallet session is established.
	Connected(ctx context.Context) (bool, error)

	// Account returns the connected account address.
	Account(ctx context.Context) (common.Address, error)

	// ChainID returns the chain the session is currently on.
	ChainID(ctx context.Context) (int64, error)

	// Connect starts the wallet connection handshake.
	Connect(ctx context.Context) error

	// SwitchChain asks the wallet to move the session to another chain.
	SwitchChain(ctx context.Context, chainID int64) error

	// SendTransaction asks the wallet to sign and broadcast the call.
	// A user decline surfaces as ErrWalletRejected.
	SendTransaction(ctx context.Context, call TxCall) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is mined or ctx ends.
	// The returned flag reports on-chain execution success.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (bool, error)
}

// GasEstimator is an optional WalletProvider capability. Providers that
// implement it feed the orchestrator's gas warning threshold check.
type GasEstimator interface {
	// SuggestGasPrice returns the provider's current gas price estimate
	// in wei.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// BackendClient is the paylink backend surface the orchestrator consumes.
// The http package provides the REST implementation.
type BackendClient interface {
	// FetchTool retrieves the public metadata of a payment tool.
	FetchTool(ctx context.Context, toolID string) (*ToolMetadata, error)

	// CreateIntent asks the backend to authorize a payment attempt with
	// the given token symbol.
	CreateIntent(ctx context.Context, toolID, token string) (*PaymentIntent, error)

	// SubmitPayment reports a broadcast transaction to the backend.
	SubmitPayment(ctx context.Context, payment SubmittedPayment) (*SubmitResult, error)

	// PaymentStatus fetches the backend's view of a submitted payment.
	PaymentStatus(ctx context.Context, toolID, paymentID string) (*PaymentStatusRecord, error)
}

// BalanceReader resolves account balances. The evm package implements it
// over an RPC client; the aggregator only depends on this contract.
type BalanceReader interface {
	// NativeBalance returns the native currency balance in base units.
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)

	// TokenBalance returns an ERC-20 balance in base units.
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
}
