// Package conditions holds the fulfillment clients for the three agreement
// conditions: reward locking, access granting and escrow release.
package conditions

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// errReverted marks a mined transaction whose receipt carries a failed
// status.
var errReverted = errors.New("transaction reverted")

// contract is the slice of the keeper contract surface the clients need.
type contract interface {
	Address() common.Address
	Transact(ctx context.Context, method string, args ...any) (*types.Receipt, error)
}

// Clients fulfills conditions against the deployed condition contracts. Each
// method waits for the mined receipt and maps a failed receipt status to the
// matching agreement error kind.
type Clients struct {
	lockReward contract
	access     contract
	escrow     contract
	log        *zap.Logger
}

func NewClients(lockReward, access, escrow contract, log *zap.Logger) *Clients {
	return &Clients{
		lockReward: lockReward,
		access:     access,
		escrow:     escrow,
		log:        log,
	}
}

func (c *Clients) LockRewardAddress() common.Address { return c.lockReward.Address() }
func (c *Clients) AccessAddress() common.Address     { return c.access.Address() }
func (c *Clients) EscrowAddress() common.Address     { return c.escrow.Address() }

// FulfillLockReward moves the already-approved payment into the escrow
// contract under the agreement id.
func (c *Clients) FulfillLockReward(ctx context.Context, agreementID models.AgreementID, escrowAddress common.Address, amount *big.Int) error {
	receipt, err := c.lockReward.Transact(ctx, "fulfill", agreementID.Bytes32(), escrowAddress, amount)
	if err != nil {
		return models.NewAgreementError(models.ErrLockRewardFailed, agreementID, "lockReward.fulfill", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return models.NewAgreementError(models.ErrLockRewardFailed, agreementID, "lockReward.fulfill", errReverted)
	}
	c.log.Info("reward locked",
		zap.String("agreement_id", agreementID.Hex()),
		zap.String("amount", amount.String()),
	)
	return nil
}

// FulfillAccess grants grantee access to the document. Called by the asset
// provider once the reward is locked.
func (c *Clients) FulfillAccess(ctx context.Context, agreementID models.AgreementID, documentID [32]byte, grantee common.Address) error {
	receipt, err := c.access.Transact(ctx, "grantAccess", agreementID.Bytes32(), documentID, grantee)
	if err != nil {
		return models.NewAgreementError(models.ErrAccessGrantFailed, agreementID, "accessSecretStore.grantAccess", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return models.NewAgreementError(models.ErrAccessGrantFailed, agreementID, "accessSecretStore.grantAccess", errReverted)
	}
	c.log.Info("access granted",
		zap.String("agreement_id", agreementID.Hex()),
		zap.String("grantee", grantee.Hex()),
	)
	return nil
}

// FulfillEscrowReward settles the locked reward to receiver. The same call
// serves both payout (receiver = provider) and refund (receiver = consumer);
// the escrow contract decides by the fulfillment state of the dependent
// conditions.
func (c *Clients) FulfillEscrowReward(ctx context.Context, agreementID models.AgreementID, amount *big.Int, receiver, sender common.Address, lockConditionID, releaseConditionID [32]byte) error {
	receipt, err := c.escrow.Transact(ctx, "escrowReward",
		agreementID.Bytes32(), amount, receiver, sender, lockConditionID, releaseConditionID)
	if err != nil {
		return models.NewAgreementError(models.ErrEscrowRewardFailed, agreementID, "escrowReward.escrowReward", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return models.NewAgreementError(models.ErrEscrowRewardFailed, agreementID, "escrowReward.escrowReward", errReverted)
	}
	c.log.Info("escrow settled",
		zap.String("agreement_id", agreementID.Hex()),
		zap.String("receiver", receiver.Hex()),
		zap.String("amount", amount.String()),
	)
	return nil
}
