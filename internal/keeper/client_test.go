package keeper

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type fakeReceiptSource struct {
	calls    int
	receipts []*types.Receipt
	errs     []error
}

func (f *fakeReceiptSource) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	i := f.calls
	f.calls++
	var r *types.Receipt
	var err error
	if i < len(f.receipts) {
		r = f.receipts[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return r, err
}

func minedReceipt(status uint64) *types.Receipt {
	return &types.Receipt{Status: status, BlockNumber: big.NewInt(7)}
}

func TestWaitMinedReturnsOnceMined(t *testing.T) {
	source := &fakeReceiptSource{
		receipts: []*types.Receipt{nil, nil, minedReceipt(types.ReceiptStatusSuccessful)},
		errs:     []error{ethereum.NotFound, ethereum.NotFound, nil},
	}

	receipt, err := waitMined(context.Background(), source, common.Hash{0x01}, 5, time.Millisecond)
	if err != nil {
		t.Fatalf("waitMined: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Errorf("status = %d, want success", receipt.Status)
	}
	if source.calls != 3 {
		t.Errorf("fetched receipt %d times, want 3", source.calls)
	}
}

func TestWaitMinedIgnoresPendingPlaceholder(t *testing.T) {
	// A receipt without a block number is still pending and must not count.
	pending := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	source := &fakeReceiptSource{
		receipts: []*types.Receipt{pending, minedReceipt(types.ReceiptStatusSuccessful)},
	}

	receipt, err := waitMined(context.Background(), source, common.Hash{0x01}, 5, time.Millisecond)
	if err != nil {
		t.Fatalf("waitMined: %v", err)
	}
	if receipt.BlockNumber == nil {
		t.Error("returned the pending placeholder receipt")
	}
	if source.calls != 2 {
		t.Errorf("fetched receipt %d times, want 2", source.calls)
	}
}

func TestWaitMinedExhaustsAttempts(t *testing.T) {
	source := &fakeReceiptSource{}
	_, err := waitMined(context.Background(), source, common.Hash{0x01}, 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if source.calls != 3 {
		t.Errorf("fetched receipt %d times, want 3", source.calls)
	}
}

func TestWaitMinedPropagatesRPCError(t *testing.T) {
	rpcErr := errors.New("connection reset")
	source := &fakeReceiptSource{errs: []error{rpcErr}}

	_, err := waitMined(context.Background(), source, common.Hash{0x01}, 5, time.Millisecond)
	if !errors.Is(err, rpcErr) {
		t.Fatalf("expected wrapped RPC error, got %v", err)
	}
	if source.calls != 1 {
		t.Errorf("fetched receipt %d times, want 1", source.calls)
	}
}

func TestSignTextRoundTrip(t *testing.T) {
	signer, err := NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	message := []byte("service agreement digest")
	sig, err := signer.SignText(message)
	if err != nil {
		t.Fatalf("SignText: %v", err)
	}

	recovered, err := RecoverAddress(message, sig)
	if err != nil {
		t.Fatalf("RecoverAddress: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	// A different message must not recover the same signer.
	other, err := RecoverAddress([]byte("tampered"), sig)
	if err == nil && other == signer.Address() {
		t.Error("tampered message recovered the original signer")
	}
}
