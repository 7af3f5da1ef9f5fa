package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lexledger/lexledger/docs/swagger"
	"github.com/lexledger/lexledger/internal/api"
	v1 "github.com/lexledger/lexledger/internal/api/v1"
	"github.com/lexledger/lexledger/internal/cache"
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/locker"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	"github.com/lexledger/lexledger/internal/repository"
	"github.com/lexledger/lexledger/internal/rest/middleware"
	"github.com/lexledger/lexledger/internal/sentry"
	"github.com/lexledger/lexledger/internal/service"
	"github.com/lexledger/lexledger/internal/validator"
	"go.uber.org/fx"
)

// @title LexLedger API
// @version 1.0
// @description Invoice and payment ledger for legal practices
// @BasePath /v1
// @schemes http https

func init() {
	// all ledger dates are UTC
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			config.NewConfig,

			logger.NewLogger,

			cache.NewInMemoryCache,

			postgres.NewDB,
			provideDBClient,

			locker.NewKeyedMutex,

			repository.NewInvoiceRepository,
			repository.NewPaymentRepository,
			repository.NewCaseRepository,
		),
	)

	opts = append(opts, sentry.Module())

	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewInvoiceService,
			service.NewPaymentService,
			service.NewSummaryService,
		),
	)

	opts = append(opts,
		fx.Provide(
			v1.NewHealthHandler,
			v1.NewInvoiceHandler,
			v1.NewPaymentHandler,
			v1.NewSummaryHandler,
			api.NewHandlers,

			middleware.NewWriteRateLimiter,
			api.NewRouter,
		),
		fx.Invoke(
			validator.NewValidator,
			registerDBHooks,
			startAPIServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

// provideDBClient exposes the database to services as a traced transactional client
func provideDBClient(db *postgres.DB, sentrySvc *sentry.Service, log *logger.Logger) postgres.IClient {
	return postgres.NewSentryClient(db, sentrySvc, log)
}

func registerDBHooks(lc fx.Lifecycle, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Postgres.AutoMigrate {
				return nil
			}
			ran, err := db.Migrate(ctx, false, os.Stdout)
			if err != nil {
				log.Errorw("auto migration failed", "error", err, "applied", ran)
				return err
			}
			log.Infow("auto migration finished", "applied", ran)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Closing database connection")
			db.Close()
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
