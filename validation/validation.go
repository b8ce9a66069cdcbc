// Package validation validates addresses, amounts, and backend payloads
// before they enter the payment flow.
package validation

import (
	"fmt"
	"math/big"
	"regexp"

	paylink "github.com/paylink-dev/paylink-go"
)

// evmAddressRegex matches Ethereum-style addresses (0x followed by 40 hex chars)
var evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidateAmount validates that an amount string is a valid positive
// base-unit integer. Returns an error if the amount is empty, malformed,
// or not greater than zero.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}

	amt := new(big.Int)
	amt, ok := amt.SetString(amount, 10)
	if !ok {
		return fmt.Errorf("invalid amount format: %s", amount)
	}

	if amt.Sign() <= 0 {
		return fmt.Errorf("amount must be greater than 0, got: %s", amount)
	}

	return nil
}

// ValidateAddress validates an EVM address.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !evmAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format: %s (expected 0x followed by 40 hex characters)", address)
	}
	return nil
}

// ValidateTool performs consistency checks on tool metadata before the
// flow trusts it: recipient and token addresses must parse, native and
// contract markers must not contradict, and at least one payable token
// must exist.
func ValidateTool(tool *paylink.ToolMetadata) error {
	if tool.ID == "" {
		return fmt.Errorf("invalid tool: id cannot be empty")
	}
	if tool.ChainID <= 0 {
		return fmt.Errorf("invalid tool: chain id must be positive, got %d", tool.ChainID)
	}
	if err := ValidateAddress(tool.Recipient); err != nil {
		return fmt.Errorf("invalid tool: recipient %w", err)
	}
	if len(tool.Tokens) == 0 {
		return fmt.Errorf("invalid tool: no payable tokens")
	}

	for _, token := range tool.Tokens {
		if err := ValidateToken(token); err != nil {
			return fmt.Errorf("invalid tool: %w", err)
		}
	}
	return nil
}

// ValidateToken checks a single token option. Native and Address are
// mutually exclusive in meaning: a native token must not carry a
// contract address, and a contract token must.
func ValidateToken(token paylink.TokenOption) error {
	if token.Symbol == "" {
		return fmt.Errorf("token symbol cannot be empty")
	}
	if token.Decimals < 0 || token.Decimals > 77 {
		return fmt.Errorf("token %s: decimals out of range: %d", token.Symbol, token.Decimals)
	}

	if token.Native {
		if token.Address != "" {
			return fmt.Errorf("token %s: native token cannot carry a contract address", token.Symbol)
		}
		return nil
	}

	if err := ValidateAddress(token.Address); err != nil {
		return fmt.Errorf("token %s: %w", token.Symbol, err)
	}
	return nil
}

// ValidateIntent checks a server-issued intent before it is broadcast.
func ValidateIntent(intent *paylink.PaymentIntent) error {
	if intent.ID == "" {
		return fmt.Errorf("invalid intent: id cannot be empty")
	}
	if err := ValidateAmount(intent.Amount); err != nil {
		return fmt.Errorf("invalid intent: %w", err)
	}
	if err := ValidateAddress(intent.PayTo); err != nil {
		return fmt.Errorf("invalid intent: pay_to %w", err)
	}
	if intent.Signature == "" {
		return fmt.Errorf("invalid intent: missing server signature")
	}
	return nil
}
