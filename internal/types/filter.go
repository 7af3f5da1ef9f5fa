package types

import (
	"fmt"

	"github.com/samber/lo"
)

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 1000

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// BaseFilter defines common filtering capabilities
type BaseFilter interface {
	GetLimit() int
	GetOffset() int
	GetSort() string
	GetOrder() string
	Validate() error
	IsUnlimited() bool
}

// QueryFilter represents a generic query filter with optional fields
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset *int    `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
	Sort   *string `json:"sort,omitempty" form:"sort"`
	Order  *string `json:"order,omitempty" form:"order" validate:"omitempty,oneof=asc desc"`
}

// NewDefaultQueryFilter defines default values for query filters
func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(FILTER_DEFAULT_LIMIT),
		Offset: lo.ToPtr(0),
		Sort:   lo.ToPtr("created_at"),
		Order:  lo.ToPtr(OrderDesc),
	}
}

// NewNoLimitQueryFilter returns a filter with no pagination limits
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  nil,
		Offset: lo.ToPtr(0),
		Sort:   lo.ToPtr("created_at"),
		Order:  lo.ToPtr(OrderDesc),
	}
}

// IsUnlimited returns true if this is an unlimited query
func (f *QueryFilter) IsUnlimited() bool {
	return f == nil || f.Limit == nil
}

// GetLimit returns the limit value, 0 for unlimited queries
func (f *QueryFilter) GetLimit() int {
	if f.IsUnlimited() {
		return 0
	}
	return *f.Limit
}

// GetOffset returns the offset value or default if not set
func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

// GetSort returns the sort value or default if not set
func (f *QueryFilter) GetSort() string {
	if f == nil || f.Sort == nil {
		return *NewDefaultQueryFilter().Sort
	}
	return *f.Sort
}

// GetOrder returns the order value or default if not set
func (f *QueryFilter) GetOrder() string {
	if f == nil || f.Order == nil {
		return *NewDefaultQueryFilter().Order
	}
	return *f.Order
}

// Validate validates the filter fields
func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 1 || *f.Limit > FILTER_MAX_LIMIT) {
		return fmt.Errorf("limit must be between 1 and %d", FILTER_MAX_LIMIT)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	if f.Order != nil && *f.Order != OrderAsc && *f.Order != OrderDesc {
		return fmt.Errorf("order must be either 'asc' or 'desc'")
	}
	return nil
}
