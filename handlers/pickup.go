package handlers

import (
	"net/http"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/gin-gonic/gin"
)

type PickupHandler struct {
	svc    *checkin.Service
	lookup middleware.ScopeLookup
}

func NewPickupHandler(svc *checkin.Service, lookup middleware.ScopeLookup) *PickupHandler {
	return &PickupHandler{svc: svc, lookup: lookup}
}

// Verify answers 200 with authorized=false for every kind of mismatch.
func (h *PickupHandler) Verify(c *gin.Context) {
	var req models.PickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Pickup.Verify(c.Request.Context(), authorizer(c, h.lookup), req, c.ClientIP())
	if err != nil {
		respondError(c, "verify pickup", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
