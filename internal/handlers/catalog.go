package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tilt-dashboard/internal/models"
)

func (h *Handler) ListQuestions(c *gin.Context) {
	list, err := h.Store.ListQuestions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) SaveQuestion(c *gin.Context) {
	var q models.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, "invalid question: "+err.Error())
		return
	}
	if c.Param("id") != "" {
		id, ok := parseID(c)
		if !ok {
			return
		}
		q.ID = id
	}

	q.Prompt = strings.TrimSpace(q.Prompt)
	if q.Prompt == "" {
		badRequest(c, "question text is required")
		return
	}
	if !q.Weight.Valid() {
		badRequest(c, "weight must be Critical, High, Medium or Low")
		return
	}
	if !levelsWithin(q.MaturityLevels, 1, 5) {
		badRequest(c, "maturity levels must be 1..5")
		return
	}

	if err := h.Store.SaveQuestion(c.Request.Context(), &q); err != nil {
		h.respondError(c, err)
		return
	}
	h.rescore(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "id": q.ID})
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteQuestion(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.rescore(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListCriteria(c *gin.Context) {
	list, err := h.Store.ListCriteria(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) SaveCriterion(c *gin.Context) {
	var cr models.CloudCriterion
	if err := c.ShouldBindJSON(&cr); err != nil {
		badRequest(c, "invalid criterion: "+err.Error())
		return
	}
	if c.Param("id") != "" {
		id, ok := parseID(c)
		if !ok {
			return
		}
		cr.ID = id
	}

	cr.Criterion = strings.TrimSpace(cr.Criterion)
	if cr.Criterion == "" {
		badRequest(c, "criterion text is required")
		return
	}
	if !cr.Criticality.Valid() {
		badRequest(c, "criticality must be Critical, High, Medium or Low")
		return
	}
	if cr.Points < 0 {
		badRequest(c, "points must not be negative")
		return
	}
	if !levelsWithin(cr.MaturityLevels, 0, 5) {
		badRequest(c, "maturity levels must be 0..5")
		return
	}

	if err := h.Store.SaveCriterion(c.Request.Context(), &cr); err != nil {
		h.respondError(c, err)
		return
	}
	h.rescore(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "id": cr.ID})
}

func (h *Handler) DeleteCriterion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteCriterion(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.rescore(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// rescore keeps stored scores in line with the edited catalog.
func (h *Handler) rescore(ctx context.Context) {
	n, err := h.Assessments.RescoreAll(ctx)
	if err != nil {
		h.Log.WithError(err).Error("rescore after catalog change failed")
		return
	}
	h.Log.WithField("vendors", n).Info("rescored vendors after catalog change")
}

func levelsWithin(levels models.MaturityLevels, lo, hi int) bool {
	for lvl := range levels {
		if lvl < lo || lvl > hi {
			return false
		}
	}
	return true
}
