package domain

// ConnectionState is the coordination client's view of its session.
type ConnectionState string

const (
	ConnectionStateConnected   ConnectionState = "CONNECTED"
	ConnectionStateSuspended   ConnectionState = "SUSPENDED"
	ConnectionStateReconnected ConnectionState = "RECONNECTED"
	ConnectionStateLost        ConnectionState = "LOST"
)

// IsConnected reports whether operations can be sent in this state.
func (s ConnectionState) IsConnected() bool {
	return s == ConnectionStateConnected || s == ConnectionStateReconnected
}

// TreeEventType classifies changes observed under the watched namespace.
type TreeEventType string

const (
	TreeEventNodeAdded             TreeEventType = "NODE_ADDED"
	TreeEventNodeUpdated           TreeEventType = "NODE_UPDATED"
	TreeEventNodeRemoved           TreeEventType = "NODE_REMOVED"
	TreeEventInitialized           TreeEventType = "INITIALIZED"
	TreeEventConnectionSuspended   TreeEventType = "CONNECTION_SUSPENDED"
	TreeEventConnectionReconnected TreeEventType = "CONNECTION_RECONNECTED"
	TreeEventConnectionLost        TreeEventType = "CONNECTION_LOST"
)

// TreeEvent is delivered by the tree watcher. Path and Data are empty for connection events;
// for NodeRemoved they hold the last known values of the removed node.
type TreeEvent struct {
	Type TreeEventType
	Path string
	Data []byte
}
