package events

import (
	"encoding/json"
	"time"

	"github.com/msilvprog7/receipt/internal/core"
)

// Actions carried by receipt events.
const (
	ActionCreated = "receipt.created"
	ActionUpdated = "receipt.updated"
	ActionDeleted = "receipt.deleted"
)

// ReceiptEvent notifies downstream consumers (the export worker) of a
// receipt mutation. The full record travels in the message because the
// store is volatile and the worker cannot fetch it later.
type ReceiptEvent struct {
	Action    string       `json:"action"`
	OwnerID   string       `json:"owner_id"`
	Receipt   core.Receipt `json:"receipt"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewReceiptEvent builds an event for one mutation.
func NewReceiptEvent(action, ownerID string, receipt core.Receipt) *ReceiptEvent {
	return &ReceiptEvent{
		Action:    action,
		OwnerID:   ownerID,
		Receipt:   receipt,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *ReceiptEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ReceiptEventFromJSON parses an event from JSON bytes.
func ReceiptEventFromJSON(data []byte) (*ReceiptEvent, error) {
	var ev ReceiptEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
