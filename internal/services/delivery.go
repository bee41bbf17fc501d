package services

// Event is the envelope every real-time push uses.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Outbound event types.
const (
	EventNewMessage         = "new_message"
	EventNewDealroomMessage = "new_dealroom_message"
)

// DeliveryRouter pushes events to a user's open channels. Delivery is
// best effort: a user with no open channels is silently skipped and a
// failed push is never surfaced as an operation error. Implemented by
// the websocket manager.
type DeliveryRouter interface {
	SendToUser(userID string, event Event)
	Broadcast(userIDs []string, event Event)
}

// NoopDeliveryRouter drops every event. Used in tests.
type NoopDeliveryRouter struct{}

func (NoopDeliveryRouter) SendToUser(string, Event) {}

func (NoopDeliveryRouter) Broadcast([]string, Event) {}
