package invoice

import (
	"context"

	"github.com/lexledger/lexledger/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create creates a new invoice
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetForUpdate retrieves an invoice and holds a row lock on it until the surrounding transaction ends.
	// Outside a transaction it behaves like Get.
	GetForUpdate(ctx context.Context, id string) (*Invoice, error)

	// Update persists an invoice if its version still matches and bumps the version
	Update(ctx context.Context, invoice *Invoice) error

	// Delete soft deletes an invoice
	Delete(ctx context.Context, id string) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// GetNextInvoiceNumber reserves the next number for the tenant, type and year, e.g. FEES-2024-000042
	GetNextInvoiceNumber(ctx context.Context, invoiceType types.InvoiceType, year int) (string, error)

	// GetStats folds every invoice of the tenant into dashboard figures
	GetStats(ctx context.Context) (*Stats, error)
}

// Stats are tenant wide invoice figures. PendingInvoices counts pending and partial invoices;
// TotalRevenue is collected money, the sum of amount_paid, never the billed total.
type Stats struct {
	TotalInvoices   int             `db:"total_invoices"`
	PendingInvoices int             `db:"pending_invoices"`
	TotalRevenue    decimal.Decimal `db:"total_revenue"`
}
