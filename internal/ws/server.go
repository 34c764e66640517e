package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server owns the hub and upgrades HTTP connections into it
type Server struct {
	Hub      *Hub
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewServer creates a WebSocket server. An empty origin list allows
// every origin.
func NewServer(log *logrus.Logger, allowedOrigins []string) *Server {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}

	return &Server{
		Hub: NewHub(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				return origins[r.Header.Get("Origin")]
			},
		},
		log: log,
	}
}

// Start runs the hub loop in the background
func (s *Server) Start() {
	go s.Hub.Run()
}

// Stop shuts the hub down and disconnects every client
func (s *Server) Stop() {
	s.Hub.Stop()
}

// HandleFarmsWebSocket upgrades the connection and starts the client
// pumps. Topic subscriptions arrive as subscribe frames.
func (s *Server) HandleFarmsWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, s.Hub, uuid.New().String())
	s.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// HandleWebSocketStats reports hub connection statistics
func (s *Server) HandleWebSocketStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Hub.GetStats())
}

// Handler provides HTTP handlers for WebSocket endpoints
type Handler struct {
	server *Server
}

// NewHandler creates a new WebSocket handler
func NewHandler(server *Server) *Handler {
	return &Handler{server: server}
}

// RegisterRoutes sets up WebSocket routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/ws")
	{
		group.GET("/farms", h.server.HandleFarmsWebSocket)
		group.GET("/stats", h.server.HandleWebSocketStats)
	}
}
