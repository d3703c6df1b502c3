package handlers

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mines-miniapp-backend/internal/models"
	"mines-miniapp-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler is the push side of the chat surface: balance updates
// and game outcomes reach the player without polling. It implements
// services.Broadcaster.
type WebSocketHandler struct {
	redisService *services.RedisService
	hub          *WebSocketHub
	logger       *log.Logger
}

type WebSocketHub struct {
	clients    map[int64]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	send       chan *Message
	logger     *log.Logger
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(redisService *services.RedisService, logger *log.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[int64]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		send:       make(chan *Message, 100),
		logger:     logger,
	}

	go hub.run()

	return &WebSocketHandler{
		redisService: redisService,
		hub:          hub,
		logger:       logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendBalance(c, client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "user_id", userID, "err", err)
			}
			break
		}

		if msg.Type == "PING" {
			h.hub.send <- &Message{
				Type:   "PONG",
				UserID: client.UserID,
				Data:   gin.H{"timestamp": time.Now().Unix()},
			}
		}
	}
}

func (h *WebSocketHandler) sendBalance(c *gin.Context, client *Client) {
	wallet, err := h.redisService.GetOrCreateWallet(c.Request.Context(), client.UserID, "")
	if err != nil {
		h.logger.Error("failed to load wallet for websocket", "user_id", client.UserID, "err", err)
		return
	}

	h.hub.send <- &Message{
		Type:   "BALANCE_UPDATE",
		UserID: client.UserID,
		Data: gin.H{
			"balance": wallet.Balance,
			"loan":    wallet.Loan,
		},
	}
}

// BroadcastBalance implements services.Broadcaster.
func (h *WebSocketHandler) BroadcastBalance(userID int64, balance int64) {
	h.hub.send <- &Message{
		Type:   "BALANCE_UPDATE",
		UserID: userID,
		Data:   gin.H{"balance": balance},
	}
}

// BroadcastGameResult implements services.Broadcaster.
func (h *WebSocketHandler) BroadcastGameResult(result *models.MinesResult) {
	h.hub.send <- &Message{
		Type:   "GAME_RESULT",
		UserID: result.UserID,
		Data:   result,
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn
			hub.logger.Debug("websocket client registered", "user_id", client.UserID)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.UserID]; ok {
				delete(hub.clients, client.UserID)
				hub.logger.Debug("websocket client unregistered", "user_id", client.UserID)
			}

		case message := <-hub.send:
			hub.deliver(message)
		}
	}
}

// deliver writes to the target user's connection, or to everyone when no
// target is set. Writes happen only on the hub goroutine.
func (hub *WebSocketHub) deliver(message *Message) {
	if message.UserID != 0 {
		if conn, ok := hub.clients[message.UserID]; ok {
			if err := conn.WriteJSON(message); err != nil {
				hub.logger.Warn("websocket write failed", "user_id", message.UserID, "err", err)
			}
		}
		return
	}

	for userID, conn := range hub.clients {
		if err := conn.WriteJSON(message); err != nil {
			hub.logger.Warn("websocket write failed", "user_id", userID, "err", err)
		}
	}
}
