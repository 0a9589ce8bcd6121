package events

import (
	"context"
	"testing"

	"github.com/msilvprog7/receipt/internal/core"
)

func TestReceiptEventRoundTrip(t *testing.T) {
	ev := NewReceiptEvent(ActionCreated, "u1", core.Receipt{
		ID:          "r1",
		Transaction: "Coffee",
		Amount:      4.5,
		Date:        core.NewDate(2024, 1, 1),
		Category:    "Food",
	})
	if ev.Timestamp.IsZero() {
		t.Fatalf("event has no timestamp")
	}

	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ReceiptEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Action != ActionCreated || back.OwnerID != "u1" || back.Receipt != ev.Receipt {
		t.Fatalf("round trip changed event: %+v", back)
	}
}

func TestReceiptEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ReceiptEventFromJSON([]byte(`{bad`)); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.PublishReceiptEvent(context.Background(), NewReceiptEvent(ActionDeleted, "u1", core.Receipt{ID: "r1"})); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}
