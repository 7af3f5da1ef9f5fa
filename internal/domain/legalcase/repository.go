package legalcase

import (
	"context"

	"github.com/lexledger/lexledger/internal/types"
)

// Repository is the case registry boundary. It never mutates cases.
type Repository interface {
	Get(ctx context.Context, id string) (*Case, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, filter *types.CaseFilter) (int, error)
}
