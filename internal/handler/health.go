package handler

import (
	"context"
	"net/http"
	"time"

	"staffdesk/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Root is the liveness probe.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "staffdesk API is running"})
}

// Health checks store and Redis connectivity and reports the mail breaker
// state. rdb and breaker may be nil when not configured.
func Health(store *infra.Store, rdb *redis.Client, breaker *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		storeStatus := "connected"
		if store.Ping(ctx) != nil {
			storeStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		status := http.StatusOK
		if storeStatus == "error" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"store": store.Driver,
			"db":    storeStatus,
			"redis": redisStatus,
		}
		if breaker != nil {
			body["mail_breaker"] = breaker.State().String()
		}
		c.JSON(status, body)
	}
}
