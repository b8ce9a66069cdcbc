// Package evm adapts an EVM RPC endpoint and an external wallet session
// to the paylink WalletProvider and BalanceReader contracts. Reads
// (balances, gas, receipts) go straight to the RPC node; anything that
// needs a signature is delegated to the wallet session, so private keys
// never enter this process.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	paylink "github.com/paylink-dev/paylink-go"
)

// WalletSession is the external signing surface a Provider delegates to:
// a wallet-connect session, a browser extension bridge, or a test fake.
type WalletSession interface {
	// Connected reports whether the session handshake has completed.
	Connected(ctx context.Context) (bool, error)

	// Connect starts the handshake; completion is observed via Connected.
	Connect(ctx context.Context) error

	// Account returns the session's active account.
	Account(ctx context.Context) (common.Address, error)

	// ChainID returns the chain the session is on.
	ChainID(ctx context.Context) (int64, error)

	// SwitchChain asks the wallet to move to another chain.
	SwitchChain(ctx context.Context, chainID int64) error

	// SendTransaction asks the wallet to sign and broadcast the call.
	SendTransaction(ctx context.Context, call paylink.TxCall) (common.Hash, error)
}

// Provider implements paylink.WalletProvider, paylink.BalanceReader and
// paylink.GasEstimator over an RPC client plus a wallet session.
type Provider struct {
	client         *ethclient.Client
	session        WalletSession
	receiptBackoff time.Duration
}

var (
	_ paylink.WalletProvider = (*Provider)(nil)
	_ paylink.BalanceReader  = (*Provider)(nil)
	_ paylink.GasEstimator   = (*Provider)(nil)
)

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithReceiptBackoff sets the poll interval used by WaitForReceipt.
func WithReceiptBackoff(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.receiptBackoff = d
	}
}

// NewProvider dials the RPC endpoint and pairs it with a wallet session.
func NewProvider(rpcURL string, session WalletSession, opts ...ProviderOption) (*Provider, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewProviderWithClient(client, session, opts...), nil
}

// NewProviderWithClient wraps an existing ethclient.
func NewProviderWithClient(client *ethclient.Client, session WalletSession, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:         client,
		session:        session,
		receiptBackoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the RPC connection.
func (p *Provider) Close() {
	p.client.Close()
}

// Connected implements paylink.WalletProvider.
func (p *Provider) Connected(ctx context.Context) (bool, error) {
	return p.session.Connected(ctx)
}

// Connect implements paylink.WalletProvider.
func (p *Provider) Connect(ctx context.Context) error {
	return p.session.Connect(ctx)
}

// Account implements paylink.WalletProvider.
func (p *Provider) Account(ctx context.Context) (common.Address, error) {
	return p.session.Account(ctx)
}

// ChainID implements paylink.WalletProvider.
func (p *Provider) ChainID(ctx context.Context) (int64, error) {
	return p.session.ChainID(ctx)
}

// SwitchChain implements paylink.WalletProvider.
func (p *Provider) SwitchChain(ctx context.Context, chainID int64) error {
	return p.session.SwitchChain(ctx, chainID)
}

// SendTransaction implements paylink.WalletProvider by delegating to the
// wallet session, which owns the keys.
func (p *Provider) SendTransaction(ctx context.Context, call paylink.TxCall) (common.Hash, error) {
	return p.session.SendTransaction(ctx, call)
}

// WaitForReceipt implements paylink.WalletProvider. It polls the node
// until the transaction is mined or ctx expires, and reports the
// receipt's execution status.
func (p *Provider) WaitForReceipt(ctx context.Context, txHash common.Hash) (bool, error) {
	ticker := time.NewTicker(p.receiptBackoff)
	defer ticker.Stop()

	for {
		receipt, err := p.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt.Status == 1, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// NativeBalance implements paylink.BalanceReader.
func (p *Provider) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return p.client.BalanceAt(ctx, account, nil)
}

// TokenBalance implements paylink.BalanceReader via an eth_call against
// the token's balanceOf.
func (p *Provider) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return balanceOf(ctx, p.client, token, account)
}

// SuggestGasPrice implements paylink.GasEstimator.
func (p *Provider) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return p.client.SuggestGasPrice(ctx)
}
