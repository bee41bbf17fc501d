package ws

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"tradeup_backend/internal/middleware"
	"tradeup_backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are delegated to the reverse proxy.
		return true
	},
}

// Handler upgrades authenticated HTTP requests to websocket channels.
type Handler struct {
	manager   *Manager
	db        *gorm.DB
	messaging services.MessagingService
}

func NewHandler(manager *Manager, db *gorm.DB, messaging services.MessagingService) *Handler {
	return &Handler{
		manager:   manager,
		db:        db,
		messaging: messaging,
	}
}

// ServeWS handles GET /ws. The request must pass the auth middleware
// first; the channel is bound to that user id for its whole lifetime.
func (h *Handler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: user=%s err=%v", userID, err)
		return
	}

	client := &Client{
		UserID:    userID,
		Conn:      conn,
		Send:      make(chan services.Event, sendBufferSize),
		manager:   h.manager,
		db:        h.db,
		messaging: h.messaging,
	}

	h.manager.register <- client

	go client.writePump()
	go client.readPump()
}
