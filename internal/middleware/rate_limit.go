// internal/middleware/rate_limit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/marketplace-backend/internal/config"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter builds a per-IP limiter. Idle visitors are dropped by
// Sweep, which the job scheduler calls.
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
	}
}

// Sweep removes visitors not seen for longer than idle.
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(c.ClientIP()).Allow() {
			utils.TooManyRequestsResponse(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RateLimiters groups the limiters applied by the router.
type RateLimiters struct {
	General *RateLimiter
	Auth    *RateLimiter
	Upload  *RateLimiter
}

func NewRateLimiters(cfg config.RateLimitConfig) *RateLimiters {
	return &RateLimiters{
		General: NewRateLimiter(rate.Every(time.Second/time.Duration(max(cfg.GeneralPerSec, 1))), max(cfg.GeneralBurst, 1)),
		Auth:    NewRateLimiter(rate.Every(time.Minute/time.Duration(max(cfg.AuthPerMin, 1))), max(cfg.AuthPerMin, 1)),
		Upload:  NewRateLimiter(rate.Every(time.Minute/time.Duration(max(cfg.UploadPerMin, 1))), max(cfg.UploadPerMin, 1)),
	}
}

// Sweepers exposes the limiters to the job scheduler by name.
func (r *RateLimiters) Sweepers() map[string]*RateLimiter {
	return map[string]*RateLimiter{
		"general": r.General,
		"auth":    r.Auth,
		"upload":  r.Upload,
	}
}
