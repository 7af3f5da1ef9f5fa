package repository

import (
	"github.com/lexledger/lexledger/internal/cache"
	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	"github.com/lexledger/lexledger/internal/domain/payment"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	postgresRepo "github.com/lexledger/lexledger/internal/repository/postgres"
)

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewCaseRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) legalcase.Repository {
	return postgresRepo.NewCaseRepository(db, logger, cache)
}
