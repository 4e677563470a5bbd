package events

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// Contract event signatures the protocol watches for. The two Fulfilled
// events share a name but not a layout, so their topics differ.
const (
	SigAgreementCreated = "AgreementCreated(bytes32,bytes32,address,address,uint256[],uint256[])"
	SigAccessFulfilled  = "Fulfilled(bytes32,bytes32,address,bytes32)"
	SigLockFulfilled    = "Fulfilled(bytes32,address,bytes32,uint256)"
)

// EventTopic hashes an event signature into its topic0 value.
func EventTopic(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}

// LogSource is the slice of the RPC surface the watcher needs; ethclient
// satisfies it.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Watcher turns filtered contract logs into single-shot notifications.
// Scoping the filter by agreement id keeps concurrent purchases from
// cross-delivering each other's events.
type Watcher struct {
	source LogSource
	log    *zap.Logger
}

func NewWatcher(source LogSource, log *zap.Logger) *Watcher {
	return &Watcher{source: source, log: log}
}

// WatchOnce delivers the first log from contract matching signature, and
// topic1 = agreementID when given, then tears the subscription down. Exactly
// one of the returned channels receives exactly one value; cancelling ctx
// abandons the wait without a send. The watcher never retries; giving up is
// the caller's timeout.
func (w *Watcher) WatchOnce(ctx context.Context, contract common.Address, signature string, agreementID *models.AgreementID) (<-chan types.Log, <-chan error) {
	logCh := make(chan types.Log, 1)
	errCh := make(chan error, 1)

	query := ethereum.FilterQuery{
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{EventTopic(signature)}},
	}
	if agreementID != nil {
		query.Topics = append(query.Topics, []common.Hash{agreementID.Topic()})
	}

	go func() {
		// Subscribe before backfilling so a log arriving between the two
		// calls is seen on one path or the other.
		liveCh := make(chan types.Log, 16)
		sub, err := w.source.SubscribeFilterLogs(ctx, query, liveCh)
		if err != nil {
			errCh <- err
			return
		}
		defer sub.Unsubscribe()

		past, err := w.source.FilterLogs(ctx, query)
		if err != nil {
			errCh <- err
			return
		}
		if len(past) > 0 {
			w.deliver(logCh, past[0], signature)
			return
		}

		select {
		case <-ctx.Done():
		case err := <-sub.Err():
			if err != nil {
				errCh <- err
			}
		case matched := <-liveCh:
			w.deliver(logCh, matched, signature)
		}
	}()

	return logCh, errCh
}

func (w *Watcher) deliver(logCh chan<- types.Log, matched types.Log, signature string) {
	w.log.Debug("event matched",
		zap.String("event", signature),
		zap.String("contract", matched.Address.Hex()),
		zap.Uint64("block", matched.BlockNumber),
	)
	logCh <- matched
}
