package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Listener drains the order stream into an in-memory view of each saga's
// latest reported status. The gateway serves this view so an operator can
// see where a consumer's purchase stands without reading the chain.
type Listener struct {
	sub Subscriber
	log *zap.Logger

	mu     sync.RWMutex
	latest map[string]string
}

func NewListener(sub Subscriber, log *zap.Logger) *Listener {
	return &Listener{
		sub:    sub,
		log:    log,
		latest: make(map[string]string),
	}
}

// Run subscribes to the order stream and consumes it until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	return l.sub.Subscribe(ctx, StreamOrders, l.handle)
}

func (l *Listener) handle(event Event) {
	agreementID, _ := event.Payload["agreement_id"].(string)
	if agreementID == "" {
		l.log.Warn("order event without agreement id", zap.String("type", event.Type))
		return
	}

	// Milestone events are logged as-is; only the status stream feeds the
	// view, so the two vocabularies never mix.
	if event.Type == EventOrderStatusChanged {
		if status, _ := event.Payload["status"].(string); status != "" {
			l.mu.Lock()
			l.latest[agreementID] = status
			l.mu.Unlock()
		}
	}

	l.log.Info("order event",
		zap.String("type", event.Type),
		zap.String("agreement_id", agreementID),
	)
}

// Latest returns the last status reported for the agreement, if any order
// event for it has been observed.
func (l *Listener) Latest(agreementID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	status, ok := l.latest[agreementID]
	return status, ok
}
