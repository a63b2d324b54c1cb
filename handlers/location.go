package handlers

import (
	"net/http"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	svc    *checkin.Service
	lookup middleware.ScopeLookup
}

func NewLocationHandler(svc *checkin.Service, lookup middleware.ScopeLookup) *LocationHandler {
	return &LocationHandler{svc: svc, lookup: lookup}
}

// Occupancy reports live room counts. ?date=YYYY-MM-DD defaults to today.
func (h *LocationHandler) Occupancy(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	date := h.svc.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	if !authorizer(c, h.lookup).CanAccessLocation(c.Request.Context(), id) {
		c.JSON(http.StatusNotFound, notFoundBody)
		return
	}

	occ, err := h.svc.Capacity.Occupancy(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, "load occupancy", err)
		return
	}

	c.JSON(http.StatusOK, occ)
}
