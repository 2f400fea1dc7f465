package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"order_manager/internal/apperrors"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orders      services.OrderService
	uploadDir   string
	maxUploadMB int
}

func NewOrderHandler(orders services.OrderService, uploadDir string, maxUploadMB int) *OrderHandler {
	return &OrderHandler{orders: orders, uploadDir: uploadDir, maxUploadMB: maxUploadMB}
}

// CreateOrder POST /api/orders
// Accepts a JSON body, or multipart form data with the order JSON in "data"
// and an optional purchase order file in "poFile".
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor := actorFrom(c)

	var in services.CreateOrderInput
	var poFilePath string

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.maxUploadMB)<<20)
		data := c.PostForm("data")
		if data == "" {
			respondError(c, apperrors.Validation("data", "Order data is required"))
			return
		}
		if err := json.Unmarshal([]byte(data), &in); err != nil {
			respondError(c, apperrors.Parse("Invalid order data", err))
			return
		}
		if file, err := c.FormFile("poFile"); err == nil {
			name := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(file.Filename))
			dst := filepath.Join(h.uploadDir, name)
			if err := c.SaveUploadedFile(file, dst); err != nil {
				respondError(c, apperrors.Internal(err))
				return
			}
			poFilePath = "/uploads/" + name
		}
	} else if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, apperrors.Parse("Invalid request format", err))
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), actor, in, poFilePath)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListOrders GET /api/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// EditOrder PUT /api/orders/:id
func (h *OrderHandler) EditOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var payload map[string]json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, apperrors.Parse("Invalid request format", err))
		return
	}
	order, err := h.orders.EditOrder(c.Request.Context(), actorFrom(c), id, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeleteOrder DELETE /api/orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// WorkflowOrders GET /api/orders/workflow/:queue
func (h *OrderHandler) WorkflowOrders(c *gin.Context) {
	orders, err := h.orders.WorkflowOrders(c.Request.Context(), actorFrom(c), c.Param("queue"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// DashboardCounts GET /api/dashboard/counts
func (h *OrderHandler) DashboardCounts(c *gin.Context) {
	counts, err := h.orders.DashboardCounts(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.Validation("id", "Invalid order id"))
		return uuid.Nil, false
	}
	return id, true
}
