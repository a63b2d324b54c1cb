package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

type HealthHandler struct {
	store Pinger
	today func() string
}

// NewHealthHandler reports store reachability; today names the service date
// the server is currently checking children into.
func NewHealthHandler(store Pinger, today func() string) *HealthHandler {
	return &HealthHandler{store: store, today: today}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"store":  h.store.Driver(),
			"error":  "Store unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"store":        h.store.Driver(),
		"service_date": h.today(),
	})
}
