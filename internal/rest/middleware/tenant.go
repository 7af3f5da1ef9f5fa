package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/types"
)

// TenantMiddleware scopes the request to the tenant named by the gateway in X-Tenant-ID.
// Requests without the header fall back to the configured default tenant.
// X-User-ID, when present, is recorded in the audit columns.
func TenantMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	defaultTenant := cfg.Ledger.DefaultTenantID
	if defaultTenant == "" {
		defaultTenant = types.DefaultTenantID
	}

	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(types.HeaderTenantID))
		if tenantID == "" {
			tenantID = defaultTenant
		}

		userID := strings.TrimSpace(c.GetHeader(types.HeaderUserID))
		if userID == "" {
			userID = types.DefaultUserID
		}

		ctx := types.SetTenantID(c.Request.Context(), tenantID)
		ctx = types.SetUserID(ctx, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
