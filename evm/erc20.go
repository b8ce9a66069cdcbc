package evm

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	addressType = mustABIType("address")
	uint256Type = mustABIType("uint256")

	balanceOfArgs    = abi.Arguments{{Type: addressType}}
	balanceOfReturns = abi.Arguments{{Type: uint256Type}}

	balanceOfMethodID = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
)

func mustABIType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}

// balanceOf reads an ERC-20 balance with a raw eth_call.
func balanceOf(ctx context.Context, client *ethclient.Client, token, account common.Address) (*big.Int, error) {
	packed, err := balanceOfArgs.Pack(account)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	data := make([]byte, 0, len(balanceOfMethodID)+len(packed))
	data = append(data, balanceOfMethodID...)
	data = append(data, packed...)

	out, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf on %s: %w", token.Hex(), err)
	}

	values, err := balanceOfReturns.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf result: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf return type %T", values[0])
	}
	return balance, nil
}
