package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/logger"
	"go.uber.org/fx"
)

type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// Module provides fx options for Sentry
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewSentryService),
		fx.Invoke(RegisterHooks),
	)
}

// registerHooks registers lifecycle hooks for Sentry
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !svc.cfg.Sentry.Enabled {
				svc.logger.Info("Sentry is disabled")
				return nil
			}

			err := sentry.Init(sentry.ClientOptions{
				Dsn:              svc.cfg.Sentry.DSN,
				Environment:      svc.cfg.Sentry.Environment,
				EnableTracing:    true,
				TracesSampleRate: svc.cfg.Sentry.SampleRate,
				BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
					return event
				},
				TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
					if ctx.Span.Name == "GET /health" || ctx.Span.Name == "GET /v1/health" {
						return 0.0
					}
					return svc.cfg.Sentry.SampleRate
				}),
			})
			if err != nil {
				svc.logger.Errorw("Failed to initialize Sentry", "error", err)
				return err
			}
			svc.logger.Infow("Sentry initialized successfully",
				"environment", svc.cfg.Sentry.Environment,
				"sample_rate", svc.cfg.Sentry.SampleRate,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if svc.cfg.Sentry.Enabled {
				svc.logger.Info("Flushing Sentry events before shutdown")
				if !svc.Flush(2) {
					svc.logger.Warn("Sentry flush timed out, some events were dropped")
				}
			}
			return nil
		},
	})
}

// NewSentryService creates a new Sentry service
func NewSentryService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

// CaptureLedgerError reports a failed ledger mutation with the invoice it touched
func (s *Service) CaptureLedgerError(ctx context.Context, operation, invoiceID string, err error) {
	if !s.cfg.Sentry.Enabled || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("ledger.operation", operation)
		scope.SetTag("invoice_id", invoiceID)
		hub.CaptureException(err)
	})
}

// AddBreadcrumb records a breadcrumb on the request hub, or the global one outside a request
func (s *Service) AddBreadcrumb(ctx context.Context, category, message string, data map[string]interface{}) {
	if !s.cfg.Sentry.Enabled {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Level:    sentry.LevelInfo,
		Data:     data,
	}, nil)
}

// Flush waits for queued events to be sent
func (s *Service) Flush(timeout uint) bool {
	if !s.cfg.Sentry.Enabled {
		return true
	}
	return sentry.Flush(time.Duration(timeout) * time.Second)
}

// StartDBSpan starts a new database span in the current transaction
func (s *Service) StartDBSpan(ctx context.Context, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.cfg.Sentry.Enabled {
		return nil, ctx
	}

	span := sentry.StartSpan(ctx, operation)
	if span != nil {
		span.Description = operation
		span.Op = "db.postgres"

		for k, v := range params {
			span.SetData(k, v)
		}
	}

	return span, span.Context()
}
