package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/cache"
	"github.com/lexledger/lexledger/internal/config"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorHandler(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(logger.NewNopLogger()))
	router.GET("/overpaid", func(c *gin.Context) {
		c.Error(ierr.NewError("payment exceeds remaining balance").
			WithHint("Payment of 1.00 exceeds the remaining balance of 0.00").
			WithReportableDetails(map[string]any{
				"invoice_id": "inv_1",
				"field":      "amount",
			}).
			Mark(ierr.ErrOverpayment))
	})
	router.GET("/boom", func(c *gin.Context) {
		c.Error(ierr.NewError("connection reset").Mark(ierr.ErrDatabase))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/overpaid", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Payment of 1.00 exceeds the remaining balance of 0.00", resp.Error.Display)
	assert.Equal(t, "inv_1", resp.Error.Details["invoice_id"])
	assert.Equal(t, "amount", resp.Error.Details["field"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "An unexpected error occurred", resp.Error.Display)
}

func TestTenantMiddleware(t *testing.T) {
	cfg := config.GetDefaultConfig()

	var tenantID, userID string
	router := gin.New()
	router.Use(TenantMiddleware(cfg))
	router.GET("/", func(c *gin.Context) {
		tenantID = types.GetTenantID(c.Request.Context())
		userID = types.GetUserID(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, cfg.Ledger.DefaultTenantID, tenantID)
	assert.Equal(t, types.DefaultUserID, userID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(types.HeaderTenantID, "tenant_firm_a")
	req.Header.Set(types.HeaderUserID, "user_partner")
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "tenant_firm_a", tenantID)
	assert.Equal(t, "user_partner", userID)
}

func TestRequestIDMiddleware(t *testing.T) {
	var requestID string
	router := gin.New()
	router.Use(RequestIDMiddleware)
	router.GET("/", func(c *gin.Context) {
		requestID = types.GetRequestID(c.Request.Context())
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, w.Header().Get(types.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(types.HeaderRequestID, "req-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", requestID)
}

func TestWriteRateLimiter(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Server.WriteRateLimit = 0.001
	cfg.Server.WriteBurst = 2

	limiter := NewWriteRateLimiter(cfg)
	router := gin.New()
	router.Use(ErrorHandler(logger.NewNopLogger()), TenantMiddleware(cfg), limiter.Middleware())
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusCreated) })
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(method, tenant string) int {
		req := httptest.NewRequest(method, "/", nil)
		req.Header.Set(types.HeaderTenantID, tenant)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "tenant_a"))
	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "tenant_a"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "tenant_a"))

	// reads and other tenants are unaffected
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "tenant_a"))
	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "tenant_b"))
}

func TestWriteRateLimiterDisabled(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Server.WriteRateLimit = 0

	limiter := NewWriteRateLimiter(cfg)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestWriteRateLimiterIdleTenantExpires(t *testing.T) {
	limiter := newWriteRateLimiter(rate.Limit(0.001), 1, 50*time.Millisecond)
	ctx := context.Background()

	first := limiter.limiter(ctx, "tenant_a")
	require.True(t, first.Allow())
	assert.False(t, limiter.limiter(ctx, "tenant_a").Allow())
	assert.Same(t, first, limiter.limiter(ctx, "tenant_a"))

	time.Sleep(120 * time.Millisecond)

	_, ok := limiter.cached(ctx, cache.GenerateKey(cache.PrefixRateLimit, "tenant_a"))
	assert.False(t, ok)
	fresh := limiter.limiter(ctx, "tenant_a")
	assert.NotSame(t, first, fresh)
	assert.True(t, fresh.Allow())
}

func TestNewWriteRateLimiterIdleTTLCoversRefill(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Server.WriteRateLimit = 0.001
	cfg.Server.WriteBurst = 2
	assert.Equal(t, 2000*time.Second, NewWriteRateLimiter(cfg).idleTTL)

	cfg.Server.WriteRateLimit = 10
	assert.Equal(t, limiterIdleTTL, NewWriteRateLimiter(cfg).idleTTL)
}
