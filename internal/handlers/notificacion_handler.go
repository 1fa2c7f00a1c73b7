package handlers

import (
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/serviexpress/backend/internal/realtime"
)

// NotificacionHandler streams solicitud and pago events over
// WebSocket.
type NotificacionHandler struct {
	Hub *realtime.Hub
}

func NewNotificacionHandler(hub *realtime.Hub) *NotificacionHandler {
	return &NotificacionHandler{Hub: hub}
}

func (h *NotificacionHandler) WebSocketHandler(c *websocket.Conn) {
	userID := c.Query("user_id")
	if userID == "" {
		log.Println("ws: falta user_id")
		c.Close()
		return
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		log.Println("ws: user_id inválido:", userID)
		c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("ws: usuario %s desconectado", userID)
	}()

	go func() {
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// lectura solo para mantener viva la conexión
	for {
		var payload map[string]interface{}
		if err := c.ReadJSON(&payload); err != nil {
			break
		}
		if t, isStr := payload["type"].(string); isStr && t == "pong" {
			continue
		}
	}
}
