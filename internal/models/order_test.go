package models

import (
	"math/big"
	"testing"
)

func TestIsValidOrderTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{OrderStatusInit, OrderStatusAwaitCreation, true},
		{OrderStatusAwaitCreation, OrderStatusLocking, true},
		{OrderStatusLocking, OrderStatusAwaitGrant, true},
		{OrderStatusAwaitGrant, OrderStatusGranted, true},

		// Compensation path
		{OrderStatusAwaitGrant, OrderStatusRefunded, true},

		// Failure from non-terminal states
		{OrderStatusInit, OrderStatusFailed, true},
		{OrderStatusAwaitCreation, OrderStatusFailed, true},
		{OrderStatusLocking, OrderStatusFailed, true},
		{OrderStatusAwaitGrant, OrderStatusFailed, true},

		// Invalid transitions
		{OrderStatusInit, OrderStatusGranted, false},
		{OrderStatusInit, OrderStatusLocking, false},
		{OrderStatusGranted, OrderStatusRefunded, false},
		{OrderStatusRefunded, OrderStatusGranted, false},
		{OrderStatusFailed, OrderStatusInit, false},
		{OrderStatusLocking, OrderStatusGranted, false},
		{"nonexistent", OrderStatusFailed, false},
		{OrderStatusInit, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidOrderTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidOrderTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{OrderStatusGranted, OrderStatusRefunded, OrderStatusFailed}
	for _, status := range terminal {
		transitions := ValidOrderTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestParseAgreementID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain hex", "9b1d6ca19724413ca3c6a979a0e13f98b0e13f989b1d6ca19724413ca3c6a979", false},
		{"with prefix", "0x9b1d6ca19724413ca3c6a979a0e13f98b0e13f989b1d6ca19724413ca3c6a979", false},
		{"too short", "9b1d6ca1", true},
		{"not hex", "zz1d6ca19724413ca3c6a979a0e13f98b0e13f989b1d6ca19724413ca3c6a979", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseAgreementID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAgreementID(%q) expected error, got %s", tt.input, id)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAgreementID(%q) unexpected error: %v", tt.input, err)
			}
			want := tt.input
			if want[:2] != "0x" {
				want = "0x" + want
			}
			if id.Hex() != want {
				t.Errorf("round trip = %s, want %s", id.Hex(), want)
			}
		})
	}
}

func TestAgreementValidate(t *testing.T) {
	a := &ServiceAgreement{
		Conditions: make([][32]byte, 3),
		TimeLocks:  make([]*big.Int, 3),
		TimeOuts:   make([]*big.Int, 3),
	}
	if err := a.Validate(); err != nil {
		t.Errorf("matching lengths should validate, got %v", err)
	}

	a.TimeOuts = a.TimeOuts[:2]
	if err := a.Validate(); err == nil {
		t.Error("mismatched time-out length should fail validation")
	}
}
