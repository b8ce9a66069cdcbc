// Package paylink implements the client-side payment flow for paylink
// payment tools: balance aggregation, transaction construction, and the
// orchestrated state machine from tool lookup to confirmed payment. The
// webhook subpackage carries the merchant-side verification of signed
// payment events.
package paylink

import "fmt"

// Chain contains chain-specific configuration for the networks paylink
// payments settle on.
type Chain struct {
	// ID is the EVM chain id.
	ID int64

	// Name is the human-readable chain name.
	Name string

	// NativeSymbol is the native currency symbol (e.g., "ETH").
	NativeSymbol string

	// NativeDecimals is the native currency precision (18 on all
	// supported chains).
	NativeDecimals int

	// ExplorerURL is the block explorer base URL, without trailing slash.
	ExplorerURL string
}

// ExplorerTxURL returns the explorer link for a transaction hash.
func (c Chain) ExplorerTxURL(txHash string) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return c.ExplorerURL + "/tx/" + txHash
}

// Mainnet chain configurations
var (
	// Ethereum is the configuration for Ethereum mainnet.
	Ethereum = Chain{
		ID:             1,
		Name:           "Ethereum",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
		ExplorerURL:    "https://etherscan.io",
	}

	// Base is the configuration for Base mainnet.
	Base = Chain{
		ID:             8453,
		Name:           "Base",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
		ExplorerURL:    "https://basescan.org",
	}

	// Polygon is the configuration for Polygon PoS mainnet.
	Polygon = Chain{
		ID:             137,
		Name:           "Polygon",
		NativeSymbol:   "POL",
		NativeDecimals: 18,
		ExplorerURL:    "https://polygonscan.com",
	}

	// Arbitrum is the configuration for Arbitrum One.
	Arbitrum = Chain{
		ID:             42161,
		Name:           "Arbitrum One",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
		ExplorerURL:    "https://arbiscan.io",
	}
)

// Testnet chain configurations
var (
	// Sepolia is the configuration for the Sepolia testnet.
	Sepolia = Chain{
		ID:             11155111,
		Name:           "Sepolia",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
		ExplorerURL:    "https://sepolia.etherscan.io",
	}

	// BaseSepolia is the configuration for the Base Sepolia testnet.
	BaseSepolia = Chain{
		ID:             84532,
		Name:           "Base Sepolia",
		NativeSymbol:   "ETH",
		NativeDecimals: 18,
		ExplorerURL:    "https://sepolia.basescan.org",
	}

	// PolygonAmoy is the configuration for the Polygon Amoy testnet.
	PolygonAmoy = Chain{
		ID:             80002,
		Name:           "Polygon Amoy",
		NativeSymbol:   "POL",
		NativeDecimals: 18,
		ExplorerURL:    "https://amoy.polygonscan.com",
	}
)

var chains = map[int64]Chain{
	Ethereum.ID:    Ethereum,
	Base.ID:        Base,
	Polygon.ID:     Polygon,
	Arbitrum.ID:    Arbitrum,
	Sepolia.ID:     Sepolia,
	BaseSepolia.ID: BaseSepolia,
	PolygonAmoy.ID: PolygonAmoy,
}

// ChainByID returns the configuration for a chain id.
func ChainByID(id int64) (Chain, error) {
	c, ok := chains[id]
	if !ok {
		return Chain{}, fmt.Errorf("%w: chain id %d", ErrUnsupportedChain, id)
	}
	return c, nil
}

// ChainName returns a display name for a chain id, falling back to the
// numeric id for unknown chains.
func ChainName(id int64) string {
	if c, ok := chains[id]; ok {
		return c.Name
	}
	return fmt.Sprintf("chain %d", id)
}
