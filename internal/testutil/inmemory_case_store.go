package testutil

import (
	"context"

	"github.com/lexledger/lexledger/internal/domain/legalcase"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
)

// InMemoryCaseStore implements legalcase.Repository
type InMemoryCaseStore struct {
	*InMemoryStore[*legalcase.Case]
}

// NewInMemoryCaseStore creates a new in-memory case store
func NewInMemoryCaseStore() *InMemoryCaseStore {
	return &InMemoryCaseStore{
		InMemoryStore: NewInMemoryStore[*legalcase.Case](),
	}
}

// AddCase seeds the registry; the ledger itself never writes cases
func (s *InMemoryCaseStore) AddCase(ctx context.Context, c *legalcase.Case) error {
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryCaseStore) Get(ctx context.Context, id string) (*legalcase.Case, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || c.Status != types.StatusPublished || !CheckTenantFilter(ctx, c.TenantID) {
		return nil, ierr.NewError("case not found").
			WithHintf("Case %s was not found", id).
			WithReportableDetails(map[string]any{
				"case_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (s *InMemoryCaseStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if ierr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *InMemoryCaseStore) Count(ctx context.Context, filter *types.CaseFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, func(ctx context.Context, c *legalcase.Case, f interface{}) bool {
		if c.Status != types.StatusPublished || !CheckTenantFilter(ctx, c.TenantID) {
			return false
		}
		cf, ok := f.(*types.CaseFilter)
		if !ok || cf == nil || cf.CaseStatus == "" {
			return true
		}
		return c.CaseStatus == cf.CaseStatus
	})
}
