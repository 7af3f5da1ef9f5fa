package payment

import (
	"context"

	"github.com/lexledger/lexledger/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for payment persistence.
// There is no Update: recorded payments never change.
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	Delete(ctx context.Context, id string) error

	// List returns payments ordered by payment_date ascending
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)

	// SumByInvoice returns the amount paid so far against an invoice
	SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error)
}
