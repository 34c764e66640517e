package ws

import (
	"time"
)

// MessageType identifies the kind of frame exchanged with clients
type MessageType string

const (
	MessageTypeSubscribe      MessageType = "subscribe"
	MessageTypeUnsubscribe    MessageType = "unsubscribe"
	MessageTypePing           MessageType = "ping"
	MessageTypePong           MessageType = "pong"
	MessageTypeError          MessageType = "error"
	MessageTypeFarmUpdate     MessageType = "farm_update"
	MessageTypePositionUpdate MessageType = "position_update"
)

// Topic is a subscription channel prefix
type Topic string

const (
	// TopicFarms fans out farm state changes, keyed by farm ID
	TopicFarms Topic = "farms"
	// TopicPositions fans out position changes, keyed by user address
	TopicPositions Topic = "positions"
)

// Message is the frame format for both directions
type Message struct {
	Type      MessageType `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	FarmID    string      `json:"farm_id,omitempty"`
	Address   string      `json:"address,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorMessage is sent to a client on protocol violations
type ErrorMessage struct {
	Type      MessageType `json:"type"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConnectionStats tracks hub-level connection counters
type ConnectionStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalSubscriptions int64     `json:"total_subscriptions"`
	MessagesSent       int64     `json:"messages_sent"`
	LastUpdate         time.Time `json:"last_update"`
}
