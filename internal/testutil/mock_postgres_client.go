package testutil

import (
	"context"
	"sync/atomic"

	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient runs fn directly. It gives no isolation and no rollback,
// so anything the services rely on for mutual exclusion has to come from elsewhere.
type MockPostgresClient struct {
	logger *logger.Logger
	txs    atomic.Int64
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.txs.Add(1)
	return fn(ctx)
}

// TxCount returns how many transactions were opened
func (c *MockPostgresClient) TxCount() int64 {
	return c.txs.Load()
}
