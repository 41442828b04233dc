// Package events defines the messages pushed to WebSocket clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeOperationSnapshot carries the full state of a running operation.
	MessageTypeOperationSnapshot MessageType = "operation:snapshot"
	// MessageTypeOperationComplete is sent once when an operation completes.
	MessageTypeOperationComplete MessageType = "operation:complete"
	// MessageTypeOperationError is sent once when an operation fails or is cancelled.
	MessageTypeOperationError MessageType = "operation:error"

	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// Message is the envelope of every message sent to clients.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Step      string      `json:"step,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// ConnectData is the payload of the greeting sent to a new client.
type ConnectData struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}
