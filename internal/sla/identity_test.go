package sla

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oceanprotocol/squid-go/internal/models"
)

func TestFunctionSelectorGoldenVectors(t *testing.T) {
	tests := []struct {
		signature string
		expected  string
	}{
		{FunctionLockReward, "2a29ece6"},
		{FunctionAccessSecretStore, "241486e3"},
		{FunctionEscrowReward, "8abd1839"},
	}

	for _, tt := range tests {
		t.Run(tt.signature, func(t *testing.T) {
			sel := FunctionSelector(tt.signature)
			if got := hex.EncodeToString(sel[:]); got != tt.expected {
				t.Errorf("FunctionSelector(%q) = %s, want %s", tt.signature, got, tt.expected)
			}
			// Re-derivation is idempotent.
			if sel != FunctionSelector(tt.signature) {
				t.Errorf("FunctionSelector(%q) is not stable", tt.signature)
			}
		})
	}
}

func TestConditionKeyGoldenVectors(t *testing.T) {
	var seqID [32]byte
	for i := range seqID {
		seqID[i] = byte(i)
	}
	addr := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

	tests := []struct {
		name     string
		id       [32]byte
		contract common.Address
		selector [4]byte
		expected string
	}{
		{
			name:     "all zero lockReward",
			selector: FunctionSelector(FunctionLockReward),
			expected: "0c231858f10237b84961b0d560fb0567e8c93ae4efd8cf65a7d0666f0a022a9d",
		},
		{
			name:     "sequential id grantAccess",
			id:       seqID,
			contract: addr,
			selector: FunctionSelector(FunctionAccessSecretStore),
			expected: "c5262e3382f1cc45e701e5f43014e8cf498332852253ed0c044504563a0def49",
		},
		{
			name:     "sequential id escrowReward",
			id:       seqID,
			contract: addr,
			selector: FunctionSelector(FunctionEscrowReward),
			expected: "8724bceaa9fb170709d38d18f7cc42a1305bfe766ef0dc87a365b91e845d479a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ConditionKey(tt.id, tt.contract, tt.selector)
			if got := hex.EncodeToString(key[:]); got != tt.expected {
				t.Errorf("ConditionKey = %s, want %s", got, tt.expected)
			}
		})
	}
}

// A 32-byte-padded address must hash to a different key than the native
// 20-byte encoding; the padded digest for the all-zero vector is
// b18afd63... and must never appear.
func TestConditionKeyRejectsPaddedDigest(t *testing.T) {
	key := ConditionKey([32]byte{}, common.Address{}, FunctionSelector(FunctionLockReward))
	padded := "b18afd63caab5040817c53b14d37951dff90e32b5a1e3e2b3f2d086d203d2749"
	if hex.EncodeToString(key[:]) == padded {
		t.Fatal("condition key matches the padded-address variant; address must stay 20 bytes")
	}
}

func TestConditionKeyDistinctInputsDistinctKeys(t *testing.T) {
	base := ConditionKey([32]byte{1}, common.Address{2}, [4]byte{3})
	variants := [][32]byte{
		ConditionKey([32]byte{9}, common.Address{2}, [4]byte{3}),
		ConditionKey([32]byte{1}, common.Address{9}, [4]byte{3}),
		ConditionKey([32]byte{1}, common.Address{2}, [4]byte{9}),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}

	// Determinism: equal inputs, byte-identical output.
	if ConditionKey([32]byte{1}, common.Address{2}, [4]byte{3}) != base {
		t.Error("ConditionKey is not deterministic")
	}
}

func TestConditionKeysOrder(t *testing.T) {
	lock := common.HexToAddress("0x0000000000000000000000000000000000000001")
	access := common.HexToAddress("0x0000000000000000000000000000000000000002")
	escrow := common.HexToAddress("0x0000000000000000000000000000000000000003")

	keys := ConditionKeys([32]byte{0xaa}, lock, access, escrow)
	if len(keys) != 3 {
		t.Fatalf("got %d keys, want 3", len(keys))
	}
	if keys[0] != ConditionKey([32]byte{0xaa}, lock, FunctionSelector(FunctionLockReward)) {
		t.Error("keys[0] is not the lockReward key")
	}
	if keys[1] != ConditionKey([32]byte{0xaa}, access, FunctionSelector(FunctionAccessSecretStore)) {
		t.Error("keys[1] is not the accessSecretStore key")
	}
	if keys[2] != ConditionKey([32]byte{0xaa}, escrow, FunctionSelector(FunctionEscrowReward)) {
		t.Error("keys[2] is not the escrowReward key")
	}
}

func TestGenerateAgreementID(t *testing.T) {
	seen := make(map[models.AgreementID]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateAgreementID()
		if err != nil {
			t.Fatalf("GenerateAgreementID: %v", err)
		}
		if id == (models.AgreementID{}) {
			t.Fatal("generated the zero agreement id")
		}
		if seen[id] {
			t.Fatalf("duplicate agreement id %s", id)
		}
		seen[id] = true
	}
}

func TestAgreementHash(t *testing.T) {
	template := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	keys := ConditionKeys([32]byte{0x01}, template, template, template)
	locks := []*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)}
	outs := []*big.Int{big.NewInt(0), big.NewInt(86400), big.NewInt(0)}
	id := models.AgreementID{0x42}

	h1, err := AgreementHash(template, keys, locks, outs, id)
	if err != nil {
		t.Fatalf("AgreementHash: %v", err)
	}
	h2, err := AgreementHash(template, keys, locks, outs, id)
	if err != nil {
		t.Fatalf("AgreementHash: %v", err)
	}
	if !bytes.Equal(h1[:], h2[:]) {
		t.Error("AgreementHash is not deterministic")
	}

	other, err := AgreementHash(template, keys, locks, outs, models.AgreementID{0x43})
	if err != nil {
		t.Fatalf("AgreementHash: %v", err)
	}
	if bytes.Equal(h1[:], other[:]) {
		t.Error("different agreement ids produced the same hash")
	}

	if _, err := AgreementHash(template, keys, locks[:2], outs, id); err == nil {
		t.Error("mismatched time-lock length should error")
	}
}
