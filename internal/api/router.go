package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/lexledger/lexledger/internal/api/v1"
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/rest/middleware"
	"github.com/lexledger/lexledger/internal/types"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Invoice *v1.InvoiceHandler
	Payment *v1.PaymentHandler
	Summary *v1.SummaryHandler
}

func NewHandlers(
	health *v1.HealthHandler,
	invoice *v1.InvoiceHandler,
	payment *v1.PaymentHandler,
	summary *v1.SummaryHandler,
) Handlers {
	return Handlers{
		Health:  health,
		Invoice: invoice,
		Payment: payment,
		Summary: summary,
	}
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, limiter *middleware.WriteRateLimiter) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(logger),
	)

	router.GET("/health", handlers.Health.Health)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1Group := router.Group("/v1")
	v1Group.Use(
		middleware.TenantMiddleware(cfg),
		middleware.SentryTagsMiddleware,
		limiter.Middleware(),
	)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	router.GET("/health", handlers.Health.Health)

	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
		invoices.DELETE("/:id", handlers.Invoice.DeleteInvoice)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
		invoices.POST("/:id/payments", handlers.Payment.AddPayment)
		invoices.GET("/:id/payments", handlers.Payment.ListPayments)
	}

	payments := router.Group("/payments")
	{
		payments.GET("/:id", handlers.Payment.GetPayment)
		payments.DELETE("/:id", handlers.Payment.RemovePayment)
	}

	cases := router.Group("/cases")
	{
		cases.GET("/:id/invoices", handlers.Summary.CaseInvoiceSummary)
		cases.GET("/:id/payments", handlers.Payment.ListCasePayments)
	}

	router.GET("/stats", handlers.Summary.TenantStats)
}
