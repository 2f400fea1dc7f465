package handlers

import (
	"fmt"
	"net/http"
	"time"

	"order_manager/internal/apperrors"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
)

type BulkHandler struct {
	bulk        services.BulkService
	maxUploadMB int
}

func NewBulkHandler(bulk services.BulkService, maxUploadMB int) *BulkHandler {
	return &BulkHandler{bulk: bulk, maxUploadMB: maxUploadMB}
}

// Import POST /api/orders/import
func (h *BulkHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.maxUploadMB)<<20)
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, apperrors.Validation("file", "Please upload an Excel file"))
		return
	}
	defer file.Close()

	orders, err := h.bulk.Import(c.Request.Context(), actorFrom(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("%d orders imported", len(orders)),
		"count":   len(orders),
		"orders":  orders,
	})
}

// Export GET /api/orders/export
func (h *BulkHandler) Export(c *gin.Context) {
	f, err := h.bulk.Export(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
