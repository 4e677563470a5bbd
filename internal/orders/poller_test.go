package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

type countingStore struct {
	calls     int
	foundFrom int // attempt number (1-based) from which the agreement exists; 0 = never
	consumer  common.Address
}

func (f *countingStore) Get(_ context.Context, agreementID models.AgreementID) (*models.ServiceAgreement, error) {
	f.calls++
	if f.foundFrom == 0 || f.calls < f.foundFrom {
		return nil, errors.New("agreement not found on-chain")
	}
	return &models.ServiceAgreement{ID: agreementID, Consumer: f.consumer}, nil
}

func TestCheckAgreementStatus(t *testing.T) {
	agreementID := models.AgreementID{0x01}
	consumer := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	t.Run("never found exhausts retries plus one", func(t *testing.T) {
		store := &countingStore{}
		ok := CheckAgreementStatus(context.Background(), store, agreementID, consumer, 2, time.Millisecond, zap.NewNop())
		if ok {
			t.Error("reported found for a missing agreement")
		}
		if store.calls != 3 {
			t.Errorf("fetched %d times, want 3", store.calls)
		}
	})

	t.Run("found on first attempt stops immediately", func(t *testing.T) {
		store := &countingStore{foundFrom: 1, consumer: consumer}
		ok := CheckAgreementStatus(context.Background(), store, agreementID, consumer, 2, time.Millisecond, zap.NewNop())
		if !ok {
			t.Error("existing agreement not confirmed")
		}
		if store.calls != 1 {
			t.Errorf("fetched %d times, want 1", store.calls)
		}
	})

	t.Run("found mid-way", func(t *testing.T) {
		store := &countingStore{foundFrom: 2, consumer: consumer}
		ok := CheckAgreementStatus(context.Background(), store, agreementID, consumer, 2, time.Millisecond, zap.NewNop())
		if !ok {
			t.Error("agreement appearing on attempt 2 not confirmed")
		}
		if store.calls != 2 {
			t.Errorf("fetched %d times, want 2", store.calls)
		}
	})

	t.Run("wrong consumer keeps retrying", func(t *testing.T) {
		other := common.HexToAddress("0x00000000000000000000000000000000000000ee")
		store := &countingStore{foundFrom: 1, consumer: other}
		ok := CheckAgreementStatus(context.Background(), store, agreementID, consumer, 1, time.Millisecond, zap.NewNop())
		if ok {
			t.Error("confirmed an agreement bound to a different consumer")
		}
		if store.calls != 2 {
			t.Errorf("fetched %d times, want 2", store.calls)
		}
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := &countingStore{}
		ok := CheckAgreementStatus(ctx, store, agreementID, consumer, 5, time.Hour, zap.NewNop())
		if ok {
			t.Error("reported found after cancellation")
		}
		if store.calls != 1 {
			t.Errorf("fetched %d times, want 1", store.calls)
		}
	})
}
