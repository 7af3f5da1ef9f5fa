package invoice

import (
	"github.com/lexledger/lexledger/internal/domain/money"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/shopspring/decimal"
)

// DeriveStatus maps an invoice's total and paid-to-date amounts to its status.
// Comparisons happen at monetary precision, so 99.999999 paid against 100.00 counts as paid.
func DeriveStatus(total, paid decimal.Decimal, cancelled bool) types.InvoiceStatus {
	switch {
	case cancelled:
		return types.InvoiceStatusCancelled
	case money.Round(paid).IsZero():
		return types.InvoiceStatusPending
	case money.Compare(paid, total) < 0:
		return types.InvoiceStatusPartial
	default:
		return types.InvoiceStatusPaid
	}
}

// CanTransition reports whether an explicit action may move an invoice between statuses.
// Payment driven moves go through DeriveStatus; paid and cancelled are terminal here.
func CanTransition(from, to types.InvoiceStatus) bool {
	if from == to {
		return true
	}

	switch from {
	case types.InvoiceStatusPending:
		return to == types.InvoiceStatusPartial || to == types.InvoiceStatusPaid || to == types.InvoiceStatusCancelled
	case types.InvoiceStatusPartial:
		return to == types.InvoiceStatusPaid || to == types.InvoiceStatusCancelled
	default:
		return false
	}
}
