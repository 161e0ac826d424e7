package bus

import "time"

// Event kinds published across the client. Subscribers filter by
// namespace prefix, e.g. "push." catches every transport event.
const (
	KindPushConnected    = "push.connected"
	KindPushMessage      = "push.message"
	KindPushDisconnected = "push.disconnected"

	KindStoreUpdated = "store.updated"

	KindConnStatusChanged = "conn.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
