package types

import (
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/samber/lo"
)

// PaymentMethod is the instrument a client used to settle an invoice
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Validate() error {
	allowed := []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodBankTransfer,
		PaymentMethodCheck,
		PaymentMethodCreditCard,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid payment method").
			WithHint("Please provide a valid payment method").
			WithReportableDetails(map[string]any{
				"field":   "method",
				"value":   m,
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentFilter represents the filter for listing payments
type PaymentFilter struct {
	*QueryFilter

	PaymentIDs []string `form:"payment_ids"`
	InvoiceID  string   `form:"invoice_id"`
	CaseID     string   `form:"case_id"`
}

// NewNoLimitPaymentFilter creates a new payment filter with no limit
func NewNoLimitPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the payment filter
func (f *PaymentFilter) Validate() error {
	if f == nil {
		return nil
	}

	if err := f.QueryFilter.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid pagination parameters").
			Mark(ierr.ErrValidation)
	}

	return nil
}
