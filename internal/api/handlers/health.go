package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gl-reconciler/internal/api/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Handle answers the health check.
func (h *HealthHandler) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewHealthResponse())
}
