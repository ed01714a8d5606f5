// Package health exposes the coordinator's HTTP health surface.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the body returned by GET /health.
type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Handler serves the single unauthenticated health endpoint.
type Handler struct{}

// NewHandler creates a new health check handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Check handles GET /health.
func (h *Handler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Status: "ok", Service: "crowdsynth-backend"})
}
