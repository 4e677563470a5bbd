// Package sla derives the deterministic identifiers of the service-agreement
// protocol: agreement ids, function selectors and condition keys. Everything
// here is pure; the same hashes are computed independently inside the keeper
// contracts, so any divergence produces keys that simply do not exist
// on-chain.
package sla

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// ABI signatures of the fulfill functions, one per condition contract. The
// 4-byte selectors derived from these must match the deployed contracts
// bit for bit.
const (
	FunctionLockReward        = "fulfill(bytes32,address,uint256)"
	FunctionAccessSecretStore = "grantAccess(bytes32,bytes32,address)"
	FunctionEscrowReward      = "escrowReward(bytes32,uint256,address,address,bytes32,bytes32)"
)

// GenerateAgreementID returns a fresh random agreement id: two UUIDs
// concatenated with hyphens stripped, read as 32 hex bytes.
func GenerateAgreementID() (models.AgreementID, error) {
	token := uuid.New().String() + uuid.New().String()
	return models.ParseAgreementID(strings.ReplaceAll(token, "-", ""))
}

// FunctionSelector is the first 4 bytes of the Keccak-256 digest of the
// UTF-8 ABI signature.
func FunctionSelector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// ConditionKey hashes (id, contract, selector) into the 32-byte key the
// condition store uses. Components keep their native widths: 32-byte id,
// 20-byte address, 4-byte selector. An address padded to 32 bytes hashes to
// a different, wrong key.
func ConditionKey(id [32]byte, contract common.Address, selector [4]byte) [32]byte {
	buf := make([]byte, 0, 56)
	buf = append(buf, id[:]...)
	buf = append(buf, contract.Bytes()...)
	buf = append(buf, selector[:]...)

	var key [32]byte
	copy(key[:], crypto.Keccak256(buf))
	return key
}

// ConditionKeys returns the three condition keys for id in protocol order:
// lockReward, accessSecretStore, escrowReward. id is the template address
// hash when deriving template-scoped keys, or the agreement id when deriving
// the per-agreement condition ids used as escrow evidence.
func ConditionKeys(id [32]byte, lockReward, access, escrow common.Address) [][32]byte {
	return [][32]byte{
		ConditionKey(id, lockReward, FunctionSelector(FunctionLockReward)),
		ConditionKey(id, access, FunctionSelector(FunctionAccessSecretStore)),
		ConditionKey(id, escrow, FunctionSelector(FunctionEscrowReward)),
	}
}

// AgreementHash is the structured message the consumer signs when asking the
// publisher to initialize an agreement. It binds the template, the condition
// keys, both timing arrays and the agreement id into one digest.
func AgreementHash(template common.Address, conditionKeys [][32]byte, timeLocks, timeOuts []*big.Int, agreementID models.AgreementID) ([32]byte, error) {
	var digest [32]byte
	if len(conditionKeys) != len(timeLocks) || len(conditionKeys) != len(timeOuts) {
		return digest, fmt.Errorf("agreement %s: %d condition keys, %d time-locks, %d time-outs; lengths must match",
			agreementID, len(conditionKeys), len(timeLocks), len(timeOuts))
	}

	buf := make([]byte, 0, 20+len(conditionKeys)*96+32)
	buf = append(buf, template.Bytes()...)
	for _, key := range conditionKeys {
		buf = append(buf, key[:]...)
	}
	for _, v := range timeLocks {
		buf = append(buf, common.BigToHash(v).Bytes()...)
	}
	for _, v := range timeOuts {
		buf = append(buf, common.BigToHash(v).Bytes()...)
	}
	buf = append(buf, agreementID[:]...)

	copy(digest[:], crypto.Keccak256(buf))
	return digest, nil
}
