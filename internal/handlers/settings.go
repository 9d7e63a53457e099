package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tilt-dashboard/internal/models"
)

func (h *Handler) GetSettings(c *gin.Context) {
	values, err := h.Store.Settings(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

func (h *Handler) SaveSettings(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		badRequest(c, "settings must be a JSON object of strings")
		return
	}
	if name, ok := values[models.SettingOrgName]; ok && strings.TrimSpace(name) == "" {
		values[models.SettingOrgName] = models.DefaultOrgName
	}
	if err := h.Store.SaveSettings(c.Request.Context(), values); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
