package operations

// WebSocketHub receives operation snapshots for delivery to clients
type WebSocketHub interface {
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}
