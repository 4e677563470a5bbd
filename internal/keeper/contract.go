package keeper

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Contract binds a deployed keeper contract to its ABI. Transact submits and
// waits for the mined receipt; validating the receipt status is the caller's
// contract-specific concern.
type Contract struct {
	name    string
	address common.Address
	bound   *bind.BoundContract
	client  *Client
	log     *zap.Logger
}

func (c *Client) NewContract(name string, address common.Address, abiJSON string) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}
	return &Contract{
		name:    name,
		address: address,
		bound:   bind.NewBoundContract(address, parsed, c.eth, c.eth, c.eth),
		client:  c,
		log:     c.log,
	}, nil
}

func (k *Contract) Address() common.Address { return k.address }

// Call invokes a view method and unpacks the outputs into out.
func (k *Contract) Call(ctx context.Context, out *[]any, method string, args ...any) error {
	if err := k.bound.Call(&bind.CallOpts{Context: ctx}, out, method, args...); err != nil {
		return fmt.Errorf("%s.%s call: %w", k.name, method, err)
	}
	return nil
}

// Transact submits a state-changing transaction and blocks until its receipt
// is mined or the attempt budget runs out.
func (k *Contract) Transact(ctx context.Context, method string, args ...any) (*types.Receipt, error) {
	opts, err := k.client.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := k.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s submit: %w", k.name, method, err)
	}

	k.log.Debug("transaction submitted",
		zap.String("contract", k.name),
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
	)

	receipt, err := k.client.WaitMined(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", k.name, method, err)
	}
	return receipt, nil
}
