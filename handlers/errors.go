package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dev-brewery/koinon-rms-sub010/checkin"
	"github.com/dev-brewery/koinon-rms-sub010/middleware"

	"github.com/gin-gonic/gin"
)

// notFoundBody is shared by every 404 so missing and forbidden records look
// the same on the wire.
var notFoundBody = gin.H{"error": "Not found", "reason": "not_found"}

func respondError(c *gin.Context, op string, err error) {
	reason := checkin.ReasonOf(err)
	switch reason {
	case "not_found":
		c.JSON(http.StatusNotFound, notFoundBody)
	case checkin.RejectCapacity, checkin.RejectRatio, "duplicate":
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": reason})
	case "inactive", "not_eligible":
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": reason})
	case "invalid_query":
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": reason})
	case "rate_limited":
		var rl *checkin.RateLimitError
		if errors.As(err, &rl) {
			c.Header("Retry-After", strconv.Itoa(retrySeconds(rl.RetryAfter)))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many failed attempts", "reason": reason})
	case "conflict":
		log.Printf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Check-in unavailable, contact an administrator", "reason": reason})
	default:
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Printf("%s: %v", op, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request timed out"})
			return
		}
		log.Printf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
	}
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// authorizer scopes the request to the caller's token.
func authorizer(c *gin.Context, lookup middleware.ScopeLookup) checkin.Authorizer {
	return middleware.NewScopeAuthorizer(lookup, middleware.ClaimsFrom(c))
}

// kioskID is the token subject when the caller is a kiosk.
func kioskID(c *gin.Context) string {
	if claims := middleware.ClaimsFrom(c); claims != nil {
		return claims.Subject
	}
	return ""
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}
