package middleware

import (
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/types"
)

// SentryMiddleware returns a middleware that captures panics and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryTagsMiddleware tags the request's hub with the tenant and request id.
// It must run after RequestIDMiddleware and TenantMiddleware.
func SentryTagsMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		ctx := c.Request.Context()
		hub.Scope().SetTag("tenant_id", types.GetTenantID(ctx))
		hub.Scope().SetTag("request_id", types.GetRequestID(ctx))
	}
	c.Next()
}
