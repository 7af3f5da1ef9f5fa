package testutil

import (
	"context"
	"time"

	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	"github.com/lexledger/lexledger/internal/domain/payment"
	"github.com/lexledger/lexledger/internal/locker"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/lexledger/lexledger/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	InvoiceRepo invoice.Repository
	PaymentRepo payment.Repository
	CaseRepo    legalcase.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     *MockPostgresClient
	locker *locker.KeyedMutex
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	// Initialize validator
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		InvoiceRepo: NewInMemoryInvoiceStore(),
		PaymentRepo: NewInMemoryPaymentStore(),
		CaseRepo:    NewInMemoryCaseStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.locker = locker.NewKeyedMutex()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.PaymentRepo.(*InMemoryPaymentStore).Clear()
	s.stores.CaseRepo.(*InMemoryCaseStore).Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLocker returns the per-invoice lock shared by the services under test
func (s *BaseServiceTestSuite) GetLocker() *locker.KeyedMutex {
	return s.locker
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

// CreateCase seeds an active case in the case registry
func (s *BaseServiceTestSuite) CreateCase(caseNumber string) *legalcase.Case {
	c := &legalcase.Case{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CASE),
		CaseNumber: caseNumber,
		Title:      "Case " + caseNumber,
		CaseStatus: types.CaseStatusActive,
		BaseModel:  types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.CaseRepo.(*InMemoryCaseStore).AddCase(s.ctx, c))
	return c
}
