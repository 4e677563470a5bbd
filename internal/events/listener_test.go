package events

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// fakeSubscriber hands the registered handler back to the test so events can
// be pushed synchronously.
type fakeSubscriber struct {
	stream  string
	handler func(Event)
}

func (f *fakeSubscriber) Subscribe(_ context.Context, stream string, handler func(Event)) error {
	f.stream = stream
	f.handler = handler
	return nil
}

func TestListenerTracksLatestStatus(t *testing.T) {
	sub := &fakeSubscriber{}
	listener := NewListener(sub, zap.NewNop())
	if err := listener.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sub.stream != StreamOrders {
		t.Fatalf("subscribed to %q, want %q", sub.stream, StreamOrders)
	}

	id := "0x0100000000000000000000000000000000000000000000000000000000000000"

	sub.handler(Event{Type: EventOrderStatusChanged, Payload: map[string]any{
		"agreement_id": id, "status": models.OrderStatusLocking,
	}})
	sub.handler(Event{Type: EventOrderStatusChanged, Payload: map[string]any{
		"agreement_id": id, "status": models.OrderStatusAwaitGrant,
	}})

	status, ok := listener.Latest(id)
	if !ok || status != models.OrderStatusAwaitGrant {
		t.Errorf("Latest = %q, %v; want %q", status, ok, models.OrderStatusAwaitGrant)
	}
}

func TestListenerMilestonesDoNotFeedView(t *testing.T) {
	sub := &fakeSubscriber{}
	listener := NewListener(sub, zap.NewNop())
	if err := listener.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	id := "0x0200000000000000000000000000000000000000000000000000000000000000"
	sub.handler(Event{Type: EventRewardLocked, Payload: map[string]any{"agreement_id": id}})

	if status, ok := listener.Latest(id); ok {
		t.Errorf("milestone event fed the status view: %q", status)
	}
}

func TestListenerIgnoresMalformedEvents(t *testing.T) {
	sub := &fakeSubscriber{}
	listener := NewListener(sub, zap.NewNop())
	if err := listener.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// No agreement id, and a status event missing its status: neither may
	// panic or pollute the view.
	sub.handler(Event{Type: EventOrderStatusChanged, Payload: map[string]any{}})
	sub.handler(Event{Type: EventOrderStatusChanged, Payload: map[string]any{
		"agreement_id": "0x03", "status": 7,
	}})

	if status, ok := listener.Latest("0x03"); ok {
		t.Errorf("malformed event fed the status view: %q", status)
	}
	if status, ok := listener.Latest(""); ok {
		t.Errorf("empty agreement id fed the status view: %q", status)
	}
}

func TestListenerUnknownAgreement(t *testing.T) {
	listener := NewListener(&fakeSubscriber{}, zap.NewNop())
	if _, ok := listener.Latest("0x04"); ok {
		t.Error("Latest reported a status for an agreement with no events")
	}
}
