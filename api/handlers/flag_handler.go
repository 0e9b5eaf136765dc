// api/handlers/flag_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/benmann/supabase/api/models"
	"github.com/benmann/supabase/internal/flags"
)

// FlagHandler serves the preview-feature endpoints.
type FlagHandler struct {
	Registry *flags.Registry
}

// NewFlagHandler creates a new FlagHandler.
func NewFlagHandler(registry *flags.Registry) *FlagHandler {
	return &FlagHandler{Registry: registry}
}

// ListFlags handles GET /api/v1/flags
func (h *FlagHandler) ListFlags(c *gin.Context) {
	list, err := h.Registry.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": list})
}

// ToggleFlag handles POST /api/v1/flags/:key/toggle
func (h *FlagHandler) ToggleFlag(c *gin.Context) {
	key := c.Param("key")

	enabled, err := h.Registry.Toggle(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, models.ToggleFlagResponse{Key: key, Enabled: enabled})
}
