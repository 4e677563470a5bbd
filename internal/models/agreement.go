package models

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Condition names, in the order the agreement template assigns them.
// Index i in a ServiceAgreement's Conditions, TimeLocks and TimeOuts
// slices refers to ConditionNames[i].
const (
	ConditionLockReward        = "lockReward"
	ConditionAccessSecretStore = "accessSecretStore"
	ConditionEscrowReward      = "escrowReward"
)

var ConditionNames = []string{
	ConditionLockReward,
	ConditionAccessSecretStore,
	ConditionEscrowReward,
}

// ConditionState mirrors the numeric states of the on-chain condition store.
type ConditionState uint8

const (
	ConditionUninitialized ConditionState = iota
	ConditionUnfulfilled
	ConditionFulfilled
	ConditionAborted
)

func (s ConditionState) String() string {
	switch s {
	case ConditionUninitialized:
		return "uninitialized"
	case ConditionUnfulfilled:
		return "unfulfilled"
	case ConditionFulfilled:
		return "fulfilled"
	case ConditionAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// AgreementID is the 32-byte identifier of a service agreement. Textually it
// is two UUIDs concatenated with hyphens removed, read as hex.
type AgreementID [32]byte

// ParseAgreementID decodes a 64-character hex string, with or without the
// 0x prefix.
func ParseAgreementID(s string) (AgreementID, error) {
	var id AgreementID
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid agreement id %q: %w", s, err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("invalid agreement id length %d, want 32 bytes", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Hex returns the 0x-prefixed form used as an event topic and in provider
// payloads.
func (id AgreementID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id AgreementID) String() string { return id.Hex() }

func (id AgreementID) Bytes32() [32]byte { return id }

// Topic returns the id as a log topic hash.
func (id AgreementID) Topic() common.Hash { return common.Hash(id) }

// ServiceAgreement is the on-chain record binding a consumer, a document and
// three conditions. It is constructed client-side and becomes durable only
// once the creation transaction is mined; after that only condition states
// change.
type ServiceAgreement struct {
	ID         AgreementID
	DID        [32]byte
	TemplateID common.Address
	Consumer   common.Address
	Provider   common.Address
	Conditions [][32]byte
	TimeLocks  []*big.Int
	TimeOuts   []*big.Int
}

// Validate checks the parallel-slice invariant: every condition has exactly
// one time-lock and one time-out at the same index.
func (a *ServiceAgreement) Validate() error {
	if len(a.Conditions) != len(a.TimeLocks) || len(a.Conditions) != len(a.TimeOuts) {
		return fmt.Errorf("agreement %s: %d conditions, %d time-locks, %d time-outs; lengths must match",
			a.ID, len(a.Conditions), len(a.TimeLocks), len(a.TimeOuts))
	}
	return nil
}

// BasicAssetInfo is the read-only price and document identity derived from an
// asset's access-service condition parameters.
type BasicAssetInfo struct {
	Price   *big.Int
	AssetID [32]byte
}
