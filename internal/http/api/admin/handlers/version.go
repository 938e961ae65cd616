package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is the service version, overridable at build time with
// -ldflags "-X ...handlers.Version=v1.2.3".
var Version = "dev"

// VersionHandler reports the running service version.
type VersionHandler struct{}

// NewVersionHandler constructs a version handler.
func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// GetVersion returns the service version.
func (h *VersionHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}
