package paylink

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Transaction construction is pure: amounts are converted by decimal
// string scaling, never through floating point, and nothing here touches
// the network.

var (
	addressType = mustABIType("address")
	uint256Type = mustABIType("uint256")

	// transferArgs matches ERC-20 transfer(address,uint256).
	transferArgs = abi.Arguments{
		{Type: addressType},
		{Type: uint256Type},
	}

	transferMethodID = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
)

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}

// AmountToBaseUnits converts a human-denominated decimal string to an
// exact base-unit integer. "49.99" at 2 decimals yields 4999; at 18
// decimals yields 49990000000000000000. Amounts with more fractional
// digits than the token carries are rejected rather than rounded.
func AmountToBaseUnits(amount string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, amount)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, amount, decimals)
	}

	return scaled.BigInt(), nil
}

// FormatBaseUnits renders a base-unit integer as a decimal string at the
// token's precision, with trailing zeros trimmed.
func FormatBaseUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// BuildTransfer produces the chain call for a payment: a native-currency
// transfer carrying value, or an ERC-20 transfer(recipient,amount)
// contract call against the token's address. Exactly one of the two
// shapes is produced.
func BuildTransfer(token TokenOption, recipient string, amount *big.Int) (TxCall, error) {
	if amount == nil || amount.Sign() <= 0 {
		return TxCall{}, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidAmount)
	}
	if !common.IsHexAddress(recipient) {
		return TxCall{}, fmt.Errorf("invalid recipient address: %s", recipient)
	}

	if token.Native {
		return TxCall{
			Kind:  CallNative,
			To:    common.HexToAddress(recipient),
			Value: new(big.Int).Set(amount),
		}, nil
	}

	if !common.IsHexAddress(token.Address) {
		return TxCall{}, fmt.Errorf("invalid token contract address: %s", token.Address)
	}

	packed, err := transferArgs.Pack(common.HexToAddress(recipient), amount)
	if err != nil {
		return TxCall{}, fmt.Errorf("pack transfer calldata: %w", err)
	}

	data := make([]byte, 0, len(transferMethodID)+len(packed))
	data = append(data, transferMethodID...)
	data = append(data, packed...)

	return TxCall{
		Kind:  CallContract,
		To:    common.HexToAddress(token.Address),
		Value: big.NewInt(0),
		Data:  data,
	}, nil
}

// BuildIntentTransfer builds the chain call for a server-issued intent.
// The intent's amount is already in base units; it is parsed exactly and
// paired with the selected token's call shape.
func BuildIntentTransfer(intent *PaymentIntent, token TokenOption) (TxCall, error) {
	amount := new(big.Int)
	if _, ok := amount.SetString(intent.Amount, 10); !ok {
		return TxCall{}, fmt.Errorf("%w: intent amount %q", ErrInvalidAmount, intent.Amount)
	}
	return BuildTransfer(token, intent.PayTo, amount)
}
