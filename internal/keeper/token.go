package keeper

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const tokenABI = `[
	{"type":"function","name":"approve","inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"_owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Token is the ERC-20 payment token reward amounts are denominated in.
type Token struct {
	contract *Contract
}

func NewToken(client *Client, address common.Address) (*Token, error) {
	contract, err := client.NewContract("token", address, tokenABI)
	if err != nil {
		return nil, err
	}
	return &Token{contract: contract}, nil
}

// Approve authorizes spender over amount of the caller's balance. The lock
// transaction depends on this allowance being visible, so Approve waits for
// the receipt before returning.
func (t *Token) Approve(ctx context.Context, spender common.Address, amount *big.Int) error {
	receipt, err := t.contract.Transact(ctx, "approve", spender, amount)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("token approve for spender %s reverted", spender.Hex())
	}
	return nil
}

func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []any
	if err := t.contract.Call(ctx, &out, "balanceOf", owner); err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf output %T", out[0])
	}
	return balance, nil
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []any
	if err := t.contract.Call(ctx, &out, "allowance", owner, spender); err != nil {
		return nil, err
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance output %T", out[0])
	}
	return allowance, nil
}
