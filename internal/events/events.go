// Package events delivers the keeper's contract events to running sagas and
// fans order lifecycle notifications out over pub/sub.
package events

import "context"

// Order lifecycle event types, published on StreamOrders as each saga
// transitions.
const (
	EventAgreementCreated   = "agreement_created"
	EventRewardLocked       = "reward_locked"
	EventAccessGranted      = "access_granted"
	EventRewardRefunded     = "reward_refunded"
	EventOrderFailed        = "order_failed"
	EventOrderStatusChanged = "order_status_changed"
)

const StreamOrders = "events:order"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
