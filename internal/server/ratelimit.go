package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tutorbook/internal/api"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	clientTTL      = 3 * time.Minute
	janitorPeriod  = time.Minute
	rateLimitedMsg = "rate limit exceeded"
)

// RateLimiter is a per-process limiter; replicas each enforce their own budget.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter keys token buckets by client IP. Buckets idle for longer
// than ttl are dropped. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if rl.enabled() {
		go rl.janitor()
	}
	return rl
}

func (rl *RateLimiter) enabled() bool {
	return rl.limit > 0
}

// Reserve takes a token for key. When none is available it returns false and
// how long until the next one.
func (rl *RateLimiter) Reserve(key string) (bool, time.Duration) {
	if !rl.enabled() {
		return true, 0
	}

	rl.mu.Lock()
	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{bucket: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	if c.bucket.AllowN(now, 1) {
		return true, 0
	}
	r := c.bucket.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.Reserve(key)
	return ok
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(janitorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.ttl)
	evicted := 0
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			evicted++
		}
	}
	return evicted
}

// RateLimitMiddleware answers 429 with a Retry-After hint once a client IP
// exhausts its burst.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(rps, burst, clientTTL)

	return func(c *gin.Context) {
		ok, wait := limiter.Reserve(c.ClientIP())
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{Error: rateLimitedMsg})
			return
		}
		c.Next()
	}
}
