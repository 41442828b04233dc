// Package websocket streams operation progress to browser clients.
//
// A single Hub goroutine owns the client set. Operation snapshots reach it
// through BroadcastUpdate, which satisfies operations.WebSocketHub, and are
// fanned out as events.Message JSON frames. Slow clients are disconnected
// rather than allowed to stall the hub.
package websocket
