package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/metrics"
	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

// Subscription represents a client subscription to a topic
type Subscription struct {
	Client *Client
	Topic  string
}

// Hub maintains the set of active clients and fans farm events out to
// topic subscribers.
type Hub struct {
	// Registered clients
	Clients map[*Client]bool

	// Register requests from the clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Subscribe requests from clients
	Subscribe chan *Subscription

	// Unsubscribe requests from clients
	Unsubscribe chan *Subscription

	// Topic subscriptions: topic -> clients
	Subscriptions map[string]map[*Client]bool

	// Statistics
	Stats ConnectionStats

	log *logrus.Logger

	mu sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a new WebSocket hub
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		Clients:       make(map[*Client]bool),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		Subscribe:     make(chan *Subscription),
		Unsubscribe:   make(chan *Subscription),
		Subscriptions: make(map[string]map[*Client]bool),
		log:           log,
		stop:          make(chan struct{}),
		Stats: ConnectionStats{
			LastUpdate: time.Now(),
		},
	}
}

// Run starts the hub loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case subscription := <-h.Subscribe:
			h.subscribeClient(subscription)

		case subscription := <-h.Unsubscribe:
			h.unsubscribeClient(subscription)

		case <-h.stop:
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Clients[client] = true
	h.Stats.TotalConnections++
	h.Stats.ActiveConnections++
	h.Stats.LastUpdate = time.Now()
	metrics.WebsocketConnections.Set(float64(h.Stats.ActiveConnections))

	h.log.WithFields(logrus.Fields{
		"clientID": client.ID,
		"active":   h.Stats.ActiveConnections,
	}).Debug("WebSocket client registered")
}

// unregisterClient removes a client and cleans up its subscriptions
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.Clients[client]; ok {
		delete(h.Clients, client)
		close(client.Send)
		h.Stats.ActiveConnections--
		h.Stats.LastUpdate = time.Now()
		metrics.WebsocketConnections.Set(float64(h.Stats.ActiveConnections))

		for topic, clients := range h.Subscriptions {
			if _, subscribed := clients[client]; subscribed {
				delete(clients, client)
				h.Stats.TotalSubscriptions--
				if len(clients) == 0 {
					delete(h.Subscriptions, topic)
				}
			}
		}

		h.log.WithFields(logrus.Fields{
			"clientID": client.ID,
			"active":   h.Stats.ActiveConnections,
		}).Debug("WebSocket client unregistered")
	}
}

func (h *Hub) subscribeClient(subscription *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Subscriptions[subscription.Topic] == nil {
		h.Subscriptions[subscription.Topic] = make(map[*Client]bool)
	}

	if !h.Subscriptions[subscription.Topic][subscription.Client] {
		h.Subscriptions[subscription.Topic][subscription.Client] = true
		h.Stats.TotalSubscriptions++
		h.Stats.LastUpdate = time.Now()
	}
}

func (h *Hub) unsubscribeClient(subscription *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.Subscriptions[subscription.Topic]; exists {
		if _, subscribed := clients[subscription.Client]; subscribed {
			delete(clients, subscription.Client)
			h.Stats.TotalSubscriptions--
			h.Stats.LastUpdate = time.Now()
			if len(clients) == 0 {
				delete(h.Subscriptions, subscription.Topic)
			}
		}
	}
}

// BroadcastToTopic sends a message to every client subscribed to a topic
func (h *Hub) BroadcastToTopic(topic string, message interface{}) {
	h.mu.RLock()
	subscribed, exists := h.Subscriptions[topic]
	if !exists || len(subscribed) == 0 {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(subscribed))
	for client := range subscribed {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).WithField("topic", topic).Error("Failed to marshal broadcast message")
		return
	}

	clientsToRemove := make([]*Client, 0)
	messagesSent := int64(0)
	for _, client := range clients {
		select {
		case client.Send <- data:
			messagesSent++
		default:
			// slow consumer, drop it
			close(client.Send)
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	if len(clientsToRemove) > 0 {
		h.mu.Lock()
		for _, client := range clientsToRemove {
			delete(h.Clients, client)
			if topicClients, ok := h.Subscriptions[topic]; ok {
				delete(topicClients, client)
			}
		}
		h.mu.Unlock()
	}

	if messagesSent > 0 || len(clientsToRemove) > 0 {
		h.mu.Lock()
		h.Stats.MessagesSent += messagesSent
		h.Stats.LastUpdate = time.Now()
		h.mu.Unlock()
	}
}

// BroadcastFarmUpdate pushes a farm snapshot to its topic subscribers
func (h *Hub) BroadcastFarmUpdate(farm *models.Farm) {
	topic := string(TopicFarms) + ":" + farm.FarmID
	h.BroadcastToTopic(topic, Message{
		Type:      MessageTypeFarmUpdate,
		Topic:     string(TopicFarms),
		FarmID:    farm.FarmID,
		Data:      farm,
		Timestamp: time.Now(),
	})
}

// BroadcastPositionUpdate pushes a position snapshot to the owner's
// topic subscribers
func (h *Hub) BroadcastPositionUpdate(position *models.Position) {
	topic := string(TopicPositions) + ":" + position.UserAddress
	h.BroadcastToTopic(topic, Message{
		Type:      MessageTypePositionUpdate,
		Topic:     string(TopicPositions),
		FarmID:    position.FarmID,
		Address:   position.UserAddress,
		Data:      position,
		Timestamp: time.Now(),
	})
}

// GetStats returns current connection statistics
func (h *Hub) GetStats() ConnectionStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.Stats
}

// GetClientCount returns the number of active clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

// GetSubscriptionCount returns the total number of subscriptions
func (h *Hub) GetSubscriptionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, clients := range h.Subscriptions {
		count += len(clients)
	}
	return count
}

// Stop stops the hub and closes all client connections
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)

		h.mu.Lock()
		clientsToClose := make([]*Client, 0, len(h.Clients))
		for client := range h.Clients {
			clientsToClose = append(clientsToClose, client)
			delete(h.Clients, client)
		}
		metrics.WebsocketConnections.Set(0)
		h.mu.Unlock()

		// WritePump sees the cancelled context and sends the close frame
		for _, client := range clientsToClose {
			client.Close()
		}
	})
}

// Notifier adapts the hub to the farm service's notification hooks
type Notifier struct {
	hub *Hub
}

// NewNotifier wraps a hub for use as a farm.Notifier
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) FarmUpdated(farm *models.Farm) {
	n.hub.BroadcastFarmUpdate(farm)
}

func (n *Notifier) PositionUpdated(position *models.Position) {
	n.hub.BroadcastPositionUpdate(position)
}
