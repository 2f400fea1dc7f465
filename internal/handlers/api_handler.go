package handlers

import (
	"context"
	"net/http"
	"time"

	"order_manager/internal/workflow"

	"github.com/gin-gonic/gin"
)

// Pinger checks a backing dependency.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type APIHandler struct {
	db Pinger
}

func NewAPIHandler(db Pinger) *APIHandler {
	return &APIHandler{db: db}
}

// Health GET /health
func (h *APIHandler) Health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = gin.H{"status": "degraded", "database": err.Error()}
		}
	}
	c.JSON(status, body)
}

// Queues GET /api/orders/workflow
func (h *APIHandler) Queues(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queues": workflow.Names()})
}
