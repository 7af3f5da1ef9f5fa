package postgres

import (
	"context"

	"github.com/lexledger/lexledger/internal/cache"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	"github.com/lexledger/lexledger/internal/types"
)

type caseRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	cache  cache.Cache
}

// NewCaseRepository reads the case registry's cases table. Get serves resolved cases from the cache;
// Exists, which guards invoice creation, always goes to the database.
func NewCaseRepository(db *postgres.DB, logger *logger.Logger, cache cache.Cache) legalcase.Repository {
	return &caseRepository{db: db, logger: logger, cache: cache}
}

func (r *caseRepository) Get(ctx context.Context, id string) (*legalcase.Case, error) {
	if c := r.GetCache(ctx, id); c != nil {
		return c, nil
	}

	c, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.SetCache(ctx, c)
	return c, nil
}

// Exists always reads the registry so an invoice is never created against a case archived since it was cached.
// The cached entry is refreshed or evicted to match.
func (r *caseRepository) Exists(ctx context.Context, id string) (bool, error) {
	c, err := r.get(ctx, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			r.DeleteCache(ctx, id)
			return false, nil
		}
		return false, err
	}
	r.SetCache(ctx, c)
	return true, nil
}

func (r *caseRepository) get(ctx context.Context, id string) (*legalcase.Case, error) {
	span := StartRepositorySpan(ctx, "case", "get", map[string]interface{}{
		"case_id": id,
	})
	defer FinishSpan(span)

	query := `
		SELECT id, tenant_id, case_number, title, case_status, status, created_at, updated_at, created_by, updated_by
		FROM cases
		WHERE id = $1 AND tenant_id = $2 AND status = $3`

	var c legalcase.Case
	if err := r.db.GetContext(ctx, &c, query, id, types.GetTenantID(ctx), types.StatusPublished); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Case with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"case_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get case").
			Mark(ierr.ErrDatabase)
	}

	return &c, nil
}

func (r *caseRepository) Count(ctx context.Context, filter *types.CaseFilter) (int, error) {
	span := StartRepositorySpan(ctx, "case", "count", nil)
	defer FinishSpan(span)

	where := newTenantWhere(ctx, "")
	if filter != nil && filter.CaseStatus != "" {
		where.add("case_status = :case_status", "case_status", filter.CaseStatus)
	}

	rows, err := r.db.NamedQueryContext(ctx, "SELECT COUNT(*) FROM cases "+where.String(), where.params)
	if err != nil {
		SetSpanError(span, err)
		return 0, ierr.WithError(err).
			WithHint("Failed to count cases").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to count cases").
				Mark(ierr.ErrDatabase)
		}
	}
	return count, nil
}

func (r *caseRepository) SetCache(ctx context.Context, c *legalcase.Case) {
	span := cache.StartCacheSpan(ctx, "case", "set", map[string]interface{}{
		"case_id": c.ID,
	})
	defer cache.FinishSpan(span)

	cacheKey := cache.GenerateKey(cache.PrefixCase, c.TenantID, c.ID)
	r.cache.Set(ctx, cacheKey, c, 0)
}

func (r *caseRepository) GetCache(ctx context.Context, id string) *legalcase.Case {
	span := cache.StartCacheSpan(ctx, "case", "get", map[string]interface{}{
		"case_id": id,
	})
	defer cache.FinishSpan(span)

	cacheKey := cache.GenerateKey(cache.PrefixCase, types.GetTenantID(ctx), id)
	if value, found := r.cache.Get(ctx, cacheKey); found {
		if c, ok := value.(*legalcase.Case); ok {
			cache.SetSpanHit(span, true)
			return c
		}
	}
	cache.SetSpanHit(span, false)
	return nil
}

func (r *caseRepository) DeleteCache(ctx context.Context, id string) {
	cacheKey := cache.GenerateKey(cache.PrefixCase, types.GetTenantID(ctx), id)
	r.cache.Delete(ctx, cacheKey)
}
