package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements per-IP rate limiting, with a stricter tier for the
// public click-tracking endpoint where a single IP hammering one affiliate
// code is the common abuse pattern.
type RateLimiter struct {
	ipLimiters    map[string]*rate.Limiter
	clickLimiters map[string]*rate.Limiter
	ipMutex       sync.RWMutex
	clickMutex    sync.RWMutex
	ipRate        rate.Limit
	clickRate     rate.Limit
	ipBurst       int
	clickBurst    int
	cleanupTicker *time.Ticker
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(ipRequestsPerSecond, clickRequestsPerMinute float64, ipBurst, clickBurst int) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:    make(map[string]*rate.Limiter),
		clickLimiters: make(map[string]*rate.Limiter),
		ipRate:        rate.Limit(ipRequestsPerSecond),
		clickRate:     rate.Limit(clickRequestsPerMinute / 60),
		ipBurst:       ipBurst,
		clickBurst:    clickBurst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically resets the limiter maps to prevent unbounded growth
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.ipMutex.Lock()
		rl.ipLimiters = make(map[string]*rate.Limiter)
		rl.ipMutex.Unlock()

		rl.clickMutex.Lock()
		rl.clickLimiters = make(map[string]*rate.Limiter)
		rl.clickMutex.Unlock()
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.ipMutex.RLock()
	limiter, exists := rl.ipLimiters[ip]
	rl.ipMutex.RUnlock()

	if !exists {
		rl.ipMutex.Lock()
		limiter = rate.NewLimiter(rl.ipRate, rl.ipBurst)
		rl.ipLimiters[ip] = limiter
		rl.ipMutex.Unlock()
	}

	return limiter
}

func (rl *RateLimiter) getClickLimiter(key string) *rate.Limiter {
	rl.clickMutex.RLock()
	limiter, exists := rl.clickLimiters[key]
	rl.clickMutex.RUnlock()

	if !exists {
		rl.clickMutex.Lock()
		limiter = rate.NewLimiter(rl.clickRate, rl.clickBurst)
		rl.clickLimiters[key] = limiter
		rl.clickMutex.Unlock()
	}

	return limiter
}

// IPRateLimiterMiddleware limits requests based on IP address
func (rl *RateLimiter) IPRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getIPLimiter(c.ClientIP())

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClickRateLimiterMiddleware applies the stricter click-endpoint limit,
// keyed by IP so one visitor cannot inflate an affiliate's click counter
func (rl *RateLimiter) ClickRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getClickLimiter(c.ClientIP())

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many click requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
