package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

// Client represents a WebSocket client connection
type Client struct {
	ID            string
	Conn          *websocket.Conn
	Hub           *Hub
	Send          chan []byte
	Subscriptions map[string]bool

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, id string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:            id,
		Conn:          conn,
		Hub:           hub,
		Send:          make(chan []byte, 256),
		Subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.cancel()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, message, err := c.Conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.Hub.log.WithError(err).Debug("WebSocket read error")
				}
				return
			}

			c.handleMessage(message)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.cancel()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError("Invalid message format", 400)
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		c.handleSubscribe(msg.Topic, msg.FarmID, msg.Address)
	case MessageTypeUnsubscribe:
		c.handleUnsubscribe(msg.Topic, msg.FarmID, msg.Address)
	case MessageTypePing:
		c.sendPong()
	default:
		c.sendError("Unknown message type", 400)
	}
}

// topicKey resolves the subscription key for a topic request, empty when
// the request is malformed
func topicKey(topic, farmID, address string) string {
	switch topic {
	case string(TopicFarms):
		if farmID == "" {
			return ""
		}
		return topic + ":" + farmID
	case string(TopicPositions):
		if address == "" {
			return ""
		}
		return topic + ":" + address
	default:
		return ""
	}
}

func (c *Client) handleSubscribe(topic, farmID, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := topicKey(topic, farmID, address)
	if key == "" {
		c.sendError("Invalid subscription topic", 400)
		return
	}

	c.Subscriptions[key] = true
	c.Hub.Subscribe <- &Subscription{
		Client: c,
		Topic:  key,
	}

	c.sendConfirmation(MessageTypeSubscribe, topic, farmID, address)
}

func (c *Client) handleUnsubscribe(topic, farmID, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := topicKey(topic, farmID, address)
	if key == "" {
		c.sendError("Invalid subscription topic", 400)
		return
	}

	delete(c.Subscriptions, key)
	c.Hub.Unsubscribe <- &Subscription{
		Client: c,
		Topic:  key,
	}

	c.sendConfirmation(MessageTypeUnsubscribe, topic, farmID, address)
}

// sendError sends an error message to the client
func (c *Client) sendError(errorMsg string, code int) {
	data, _ := json.Marshal(ErrorMessage{
		Type:      MessageTypeError,
		Error:     errorMsg,
		Code:      code,
		Timestamp: time.Now(),
	})
	select {
	case c.Send <- data:
	default:
		close(c.Send)
	}
}

func (c *Client) sendPong() {
	data, _ := json.Marshal(Message{
		Type:      MessageTypePong,
		Timestamp: time.Now(),
	})
	select {
	case c.Send <- data:
	default:
		close(c.Send)
	}
}

func (c *Client) sendConfirmation(messageType MessageType, topic, farmID, address string) {
	data, _ := json.Marshal(Message{
		Type:      messageType,
		Topic:     topic,
		FarmID:    farmID,
		Address:   address,
		Timestamp: time.Now(),
	})
	select {
	case c.Send <- data:
	default:
		close(c.Send)
	}
}

// IsSubscribed checks if the client is subscribed to a topic
func (c *Client) IsSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Subscriptions[topic]
}

// Close closes the client connection
func (c *Client) Close() {
	c.cancel()
}
