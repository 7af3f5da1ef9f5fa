package service

import (
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	"github.com/lexledger/lexledger/internal/domain/payment"
	"github.com/lexledger/lexledger/internal/locker"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	"github.com/lexledger/lexledger/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentry.Service

	// Locker serializes ledger mutations per invoice id within this process
	Locker *locker.KeyedMutex

	// Repositories
	InvoiceRepo invoice.Repository
	PaymentRepo payment.Repository
	CaseRepo    legalcase.Repository
}

// NewServiceParams creates a new ServiceParams
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	locker *locker.KeyedMutex,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	caseRepo legalcase.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:      logger,
		Config:      config,
		DB:          db,
		Sentry:      sentry,
		Locker:      locker,
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		CaseRepo:    caseRepo,
	}
}
