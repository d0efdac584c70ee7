package middlewares

import (
	"context"
	"hbs/src/lib"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MaintenanceMiddleware rejects writes while the maintenance flag is set in
// redis. Webhook delivery stays open so gateway events are not lost; the
// gateway retries, but not forever.
func MaintenanceMiddleware(ctx *gin.Context) {
	if ctx.Request.Method == http.MethodGet {
		return
	}
	if ctx.FullPath() == "/api/v1/webhook/paystack" {
		return
	}
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	c, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	val, err := rd.Get(c, "maintenance").Result()
	if err != nil {
		return
	}
	if val == "1" {
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "down for maintenance"})
	}
}
