package handlers

import (
	"fmt"
	"net/http"
	"time"

	"order_manager/internal/apperrors"
	"order_manager/internal/realtime"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const heartbeatInterval = 30 * time.Second

type RealtimeHandler struct {
	hub   *realtime.Hub
	users services.UserService
}

func NewRealtimeHandler(hub *realtime.Hub, users services.UserService) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, users: users}
}

type joinRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
	Role     string `json:"role"`
}

// rooms resolves the rooms for userID. The stored role decides admin
// membership; the role a client claims is ignored. When the gateway has set
// X-User-ID, the requested user must be that identity.
func (h *RealtimeHandler) rooms(c *gin.Context, userID string) ([]string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("userId", "Invalid user id")
	}
	if header := c.GetHeader("X-User-ID"); header != "" {
		caller, err := uuid.Parse(header)
		if err != nil {
			return nil, apperrors.Unauthorized("invalid user ID format")
		}
		if caller != id {
			return nil, apperrors.Forbidden("Cannot subscribe to another user's events")
		}
	}
	user, err := h.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		return nil, apperrors.Unauthorized("unknown user")
	}
	return services.JoinRooms(user), nil
}

// Events GET /api/realtime/events?userId=&role=
// Opens a server-sent event stream and joins the user's rooms.
func (h *RealtimeHandler) Events(c *gin.Context) {
	rooms, err := h.rooms(c, c.Query("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	client := realtime.NewClient(uuid.NewString(), c.Query("userId"))
	h.hub.Register(client)
	defer h.hub.Unregister(client.ID)
	if err := h.hub.Join(client.ID, rooms); err != nil {
		respondError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"clientId\":%q}\n\n", client.ID)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	gone := c.Request.Context().Done()
	for {
		select {
		case <-gone:
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Name, event.Data)
			c.Writer.Flush()
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}

// Join POST /api/realtime/join
// Re-joins the rooms of an open stream, e.g. after the user's team changed.
func (h *RealtimeHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Parse("Invalid request format", err))
		return
	}
	rooms, err := h.rooms(c, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.hub.Join(req.ClientID, rooms); err != nil {
		respondError(c, apperrors.NotFound("Unknown realtime client"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

