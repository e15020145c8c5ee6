package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const clientLimiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-client token bucket. Analysis batches
// are expensive, so the bucket is small: r requests per second with the
// given burst, keyed by client IP.
func RateLimitMiddleware(r rate.Limit, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	clients := make(map[string]*clientLimiter)

	return func(c *gin.Context) {
		key := c.ClientIP()
		now := time.Now()

		mu.Lock()
		entry, ok := clients[key]
		if !ok {
			entry = &clientLimiter{limiter: rate.NewLimiter(r, burst)}
			clients[key] = entry
		}
		entry.lastSeen = now

		// Drop buckets for clients that went quiet.
		for addr, other := range clients {
			if now.Sub(other.lastSeen) > clientLimiterIdleTTL {
				delete(clients, addr)
			}
		}
		mu.Unlock()

		if !entry.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many analysis requests. Please retry shortly",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
