package handlers

import (
	"net/http"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/gin-gonic/gin"
)

type CheckinHandler struct {
	svc    *checkin.Service
	lookup middleware.ScopeLookup
}

func NewCheckinHandler(svc *checkin.Service, lookup middleware.ScopeLookup) *CheckinHandler {
	return &CheckinHandler{svc: svc, lookup: lookup}
}

func (h *CheckinHandler) CheckIn(c *gin.Context) {
	var req models.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Recorder.CheckIn(c.Request.Context(), authorizer(c, h.lookup), req, kioskID(c))
	if err != nil {
		respondError(c, "check in", err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// FamilyCheckIn answers 200 with per-person results even when some members
// failed. Only a family that cannot be loaded fails the request.
func (h *CheckinHandler) FamilyCheckIn(c *gin.Context) {
	var req models.FamilyCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Recorder.BatchCheckIn(c.Request.Context(), authorizer(c, h.lookup), req.FamilyID, req.Selections, kioskID(c))
	if err != nil {
		respondError(c, "check in family", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *CheckinHandler) CheckOut(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	resp, err := h.svc.Recorder.CheckOut(c.Request.Context(), authorizer(c, h.lookup), id)
	if err != nil {
		respondError(c, "check out", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
