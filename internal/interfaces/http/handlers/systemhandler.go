package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasmofleet/internal/shared/buildinfo"
)

// SystemHandler serves the liveness and version endpoints.
type SystemHandler struct{}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Version handles GET /version
func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}
