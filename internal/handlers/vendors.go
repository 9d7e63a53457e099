package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tilt-dashboard/internal/assessment"
	"tilt-dashboard/internal/models"
)

func (h *Handler) ListVendors(c *gin.Context) {
	list, err := h.Assessments.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) RankedVendors(c *gin.Context) {
	list, err := h.Assessments.Ranked(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	va, err := h.Assessments.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, va)
}

func (h *Handler) CreateVendor(c *gin.Context) {
	var va models.VendorAssessment
	if err := c.ShouldBindJSON(&va); err != nil {
		badRequest(c, "invalid vendor: "+err.Error())
		return
	}
	va.ID = 0

	saved, err := h.Assessments.Save(c.Request.Context(), &va)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) UpdateVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var va models.VendorAssessment
	if err := c.ShouldBindJSON(&va); err != nil {
		badRequest(c, "invalid vendor: "+err.Error())
		return
	}
	va.ID = id

	saved, err := h.Assessments.Save(c.Request.Context(), &va)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) DeleteVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Assessments.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type acknowledgeForm struct {
	Acknowledged *bool `json:"acknowledged"`
}

func (h *Handler) AcknowledgeVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var form acknowledgeForm
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		// an empty body means acknowledge
		if err := c.ShouldBindJSON(&form); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "invalid request")
			return
		}
	}
	ack := form.Acknowledged == nil || *form.Acknowledged

	va, err := h.Assessments.Acknowledge(c.Request.Context(), id, ack)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, va)
}

func (h *Handler) Calculate(c *gin.Context) {
	var req assessment.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.Assessments.Calculate(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ScanVendor runs the OSINT checks for one vendor. ?force=true skips cached
// evidence and may be answered with 429.
func (h *Handler) ScanVendor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	force, err := strconv.ParseBool(c.DefaultQuery("force", "false"))
	if err != nil {
		badRequest(c, "invalid force flag")
		return
	}

	va, err := h.Assessments.Scan(c.Request.Context(), id, force)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": va, "evidence": va.Evidence})
}
