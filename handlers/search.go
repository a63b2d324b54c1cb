package handlers

import (
	"net/http"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	svc    *checkin.Service
	lookup middleware.ScopeLookup
}

func NewSearchHandler(svc *checkin.Service, lookup middleware.ScopeLookup) *SearchHandler {
	return &SearchHandler{svc: svc, lookup: lookup}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var q models.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	families, err := h.svc.Searcher.Search(c.Request.Context(), authorizer(c, h.lookup), q)
	if err != nil {
		respondError(c, "search families", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"families": families})
}

func (h *SearchHandler) Labels(c *gin.Context) {
	var req models.LabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	labels, err := h.svc.Searcher.Labels(c.Request.Context(), authorizer(c, h.lookup), req.AttendanceIDs)
	if err != nil {
		respondError(c, "load labels", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"labels": labels})
}
