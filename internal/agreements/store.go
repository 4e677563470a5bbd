// Package agreements creates and reads service agreements on the keeper:
// on-chain creation through the template contract and state recovery through
// the agreement and condition store managers.
package agreements

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// ErrNotFound reports an agreement id with no on-chain record yet. Callers
// polling for creation treat it as "not yet", not as a protocol failure.
var ErrNotFound = errors.New("agreement not found on-chain")

type contract interface {
	Address() common.Address
	Transact(ctx context.Context, method string, args ...any) (*types.Receipt, error)
	Call(ctx context.Context, out *[]any, method string, args ...any) error
}

// Registry maps condition contract addresses to their protocol names. An
// address outside the registry marks a corrupted or foreign agreement.
type Registry struct {
	names map[common.Address]string
}

func NewRegistry(lockReward, access, escrow common.Address) *Registry {
	return &Registry{names: map[common.Address]string{
		lockReward: models.ConditionLockReward,
		access:     models.ConditionAccessSecretStore,
		escrow:     models.ConditionEscrowReward,
	}}
}

func (r *Registry) Name(address common.Address) (string, bool) {
	name, ok := r.names[address]
	return name, ok
}

// Store is the agreement store client. template creates agreements, manager
// and condStore serve reads.
type Store struct {
	template  contract
	manager   contract
	condStore contract
	registry  *Registry
	log       *zap.Logger
}

func NewStore(template, manager, condStore contract, registry *Registry, log *zap.Logger) *Store {
	return &Store{
		template:  template,
		manager:   manager,
		condStore: condStore,
		registry:  registry,
		log:       log,
	}
}

// Create submits the agreement-creation transaction and waits for its
// receipt. Condition fulfillment against an id that was never created is
// rejected by the ledger, so every saga calls this (or observes the
// counterparty's creation event) first.
func (s *Store) Create(ctx context.Context, agreement *models.ServiceAgreement) error {
	agreement.TimeLocks = timeLocksOrZero(agreement.TimeLocks, len(agreement.Conditions))
	agreement.TimeOuts = timeLocksOrZero(agreement.TimeOuts, len(agreement.Conditions))
	if err := agreement.Validate(); err != nil {
		return err
	}

	receipt, err := s.template.Transact(ctx, "createAgreement",
		agreement.ID.Bytes32(),
		agreement.DID,
		agreement.Conditions,
		agreement.TimeLocks,
		agreement.TimeOuts,
		agreement.Consumer,
	)
	if err != nil {
		return models.NewAgreementError(models.ErrAgreementNotInitialized, agreement.ID, "template.createAgreement", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return models.NewAgreementError(models.ErrAgreementNotInitialized, agreement.ID, "template.createAgreement",
			errors.New("transaction reverted"))
	}

	s.log.Info("agreement created",
		zap.String("agreement_id", agreement.ID.Hex()),
		zap.String("consumer", agreement.Consumer.Hex()),
	)
	return nil
}

// Get fetches the on-chain agreement record. Time locks and time outs are
// per-condition data and are not part of the record; the returned agreement
// leaves them nil.
func (s *Store) Get(ctx context.Context, agreementID models.AgreementID) (*models.ServiceAgreement, error) {
	var out []any
	if err := s.manager.Call(ctx, &out, "getAgreement", agreementID.Bytes32()); err != nil {
		return nil, fmt.Errorf("agreement %s: %w", agreementID, err)
	}
	if len(out) < 5 {
		return nil, fmt.Errorf("agreement %s: malformed getAgreement response (%d fields)", agreementID, len(out))
	}

	templateID, ok := out[2].(common.Address)
	if !ok {
		return nil, fmt.Errorf("agreement %s: malformed template id", agreementID)
	}
	if templateID == (common.Address{}) {
		return nil, fmt.Errorf("agreement %s: %w", agreementID, ErrNotFound)
	}

	did, _ := out[0].([32]byte)
	owner, _ := out[1].(common.Address)
	conditionIDs, _ := out[3].([][32]byte)
	consumer, _ := out[4].(common.Address)

	return &models.ServiceAgreement{
		ID:         agreementID,
		DID:        did,
		TemplateID: templateID,
		Consumer:   consumer,
		Provider:   owner,
		Conditions: conditionIDs,
	}, nil
}

// Status resolves each condition of the agreement to its name and current
// state. A condition whose owning contract is outside the registry fails the
// whole call: the id belongs to some other template.
func (s *Store) Status(ctx context.Context, agreementID models.AgreementID) (map[string]models.ConditionState, error) {
	agreement, err := s.Get(ctx, agreementID)
	if err != nil {
		return nil, err
	}

	states := make(map[string]models.ConditionState, len(agreement.Conditions))
	for _, conditionID := range agreement.Conditions {
		var out []any
		if err := s.condStore.Call(ctx, &out, "getCondition", conditionID); err != nil {
			return nil, fmt.Errorf("agreement %s condition %x: %w", agreementID, conditionID, err)
		}
		if len(out) < 2 {
			return nil, fmt.Errorf("agreement %s condition %x: malformed getCondition response", agreementID, conditionID)
		}

		owner, _ := out[0].(common.Address)
		name, ok := s.registry.Name(owner)
		if !ok {
			return nil, models.NewAgreementError(models.ErrConditionNotFound, agreementID, "conditionStore.getCondition",
				fmt.Errorf("condition %x owned by unknown contract %s", conditionID, owner.Hex()))
		}

		state, _ := out[1].(uint8)
		states[name] = models.ConditionState(state)
	}
	return states, nil
}

// timeLocksOrZero pads nil parallel arrays for agreements built by
// counterparties that omit them.
func timeLocksOrZero(values []*big.Int, n int) []*big.Int {
	if values != nil {
		return values
	}
	zeros := make([]*big.Int, n)
	for i := range zeros {
		zeros[i] = big.NewInt(0)
	}
	return zeros
}
