package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/cache"
	"github.com/lexledger/lexledger/internal/config"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a tenant's limiter survives without write traffic
const limiterIdleTTL = 15 * time.Minute

// WriteRateLimiter throttles mutating requests per tenant. Reads are never limited.
// Limiters of idle tenants expire from the store, so unknown X-Tenant-ID values cannot grow it without bound.
type WriteRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	limiters cache.Cache
}

func NewWriteRateLimiter(cfg *config.Configuration) *WriteRateLimiter {
	burst := cfg.Server.WriteBurst
	if burst < 1 {
		burst = 1
	}

	// a limiter must not expire before its bucket could have refilled
	idleTTL := limiterIdleTTL
	if cfg.Server.WriteRateLimit > 0 {
		refill := time.Duration(float64(burst) / cfg.Server.WriteRateLimit * float64(time.Second))
		if refill > idleTTL {
			idleTTL = refill
		}
	}

	return newWriteRateLimiter(rate.Limit(cfg.Server.WriteRateLimit), burst, idleTTL)
}

func newWriteRateLimiter(limit rate.Limit, burst int, idleTTL time.Duration) *WriteRateLimiter {
	return &WriteRateLimiter{
		limit:    limit,
		burst:    burst,
		idleTTL:  idleTTL,
		limiters: cache.NewInMemoryStore(idleTTL),
	}
}

// limiter returns the tenant's limiter and pushes its expiry out by idleTTL
func (l *WriteRateLimiter) limiter(ctx context.Context, tenantID string) *rate.Limiter {
	key := cache.GenerateKey(cache.PrefixRateLimit, tenantID)

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.cached(ctx, key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	l.limiters.Set(ctx, key, lim, l.idleTTL)
	return lim
}

func (l *WriteRateLimiter) cached(ctx context.Context, key string) (*rate.Limiter, bool) {
	v, ok := l.limiters.Get(ctx, key)
	if !ok {
		return nil, false
	}
	lim, ok := v.(*rate.Limiter)
	return lim, ok
}

// Middleware must run after TenantMiddleware
func (l *WriteRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 || !isWrite(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		tenantID := types.GetTenantID(ctx)
		if !l.limiter(ctx, tenantID).Allow() {
			c.Error(ierr.NewError("write rate limit exceeded").
				WithHint("Too many requests, please slow down").
				WithReportableDetails(map[string]any{
					"tenant_id": tenantID,
				}).
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}

		c.Next()
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
