package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lexledger/lexledger/internal/cache"
	"github.com/lexledger/lexledger/internal/config"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUnreachableCaseRepository returns a repository whose database rejects every query,
// so any answer it gives must have come from the cache.
func newUnreachableCaseRepository(t *testing.T) *caseRepository {
	conn, err := sql.Open("postgres", "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	db := &postgres.DB{DB: sqlx.NewDb(conn, "postgres")}
	return NewCaseRepository(db, logger.NewNopLogger(), cache.NewInMemoryCache(config.GetDefaultConfig())).(*caseRepository)
}

func TestCaseRepository_GetServedFromCache(t *testing.T) {
	repo := newUnreachableCaseRepository(t)
	ctx := types.SetTenantID(context.Background(), "tenant_a")

	repo.SetCache(ctx, &legalcase.Case{
		ID:         "case_1",
		CaseNumber: "C-2024-001",
		CaseStatus: types.CaseStatusActive,
		BaseModel:  types.BaseModel{TenantID: "tenant_a", Status: types.StatusPublished},
	})

	c, err := repo.Get(ctx, "case_1")
	require.NoError(t, err)
	assert.Equal(t, "C-2024-001", c.CaseNumber)

	// another tenant never sees the entry
	_, err = repo.Get(types.SetTenantID(context.Background(), "tenant_b"), "case_1")
	assert.True(t, ierr.Is(err, ierr.ErrDatabase))
}

func TestCaseRepository_ExistsBypassesCache(t *testing.T) {
	repo := newUnreachableCaseRepository(t)
	ctx := types.SetTenantID(context.Background(), "tenant_a")

	repo.SetCache(ctx, &legalcase.Case{
		ID:        "case_1",
		BaseModel: types.BaseModel{TenantID: "tenant_a", Status: types.StatusPublished},
	})

	exists, err := repo.Exists(ctx, "case_1")
	require.Error(t, err)
	assert.False(t, exists)
	assert.True(t, ierr.Is(err, ierr.ErrDatabase))
	assert.NotNil(t, repo.GetCache(ctx, "case_1"))
}
