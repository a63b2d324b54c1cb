package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	tokens *middleware.TokenService
}

func NewAuthHandler(tokens *middleware.TokenService) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

func (h *AuthHandler) KioskToken(c *gin.Context) {
	var req models.KioskTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.tokens.IssueKioskToken(c.Request.Context(), req.KioskID, req.Secret)
	if errors.Is(err, middleware.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid kiosk credentials"})
		return
	}
	if err != nil {
		log.Printf("Error issuing kiosk token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
