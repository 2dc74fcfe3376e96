package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is anything whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the database answers and whether the provider
// credential is configured. A missing credential does not make the server
// unhealthy; the gateways answer 500 for it per request.
func Health(log *zap.Logger, db Pinger, providerReady func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok", "database": "ok", "provider": providerReady()}
		if err := db.Ping(c.Request.Context()); err != nil {
			log.Error("Health check failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
		c.JSON(status, body)
	}
}
