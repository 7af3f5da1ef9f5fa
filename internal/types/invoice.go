package types

import (
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/samber/lo"
)

// InvoiceType categorizes the purpose of a legal billing document
type InvoiceType string

const (
	InvoiceTypeFees       InvoiceType = "fees"
	InvoiceTypeExpenses   InvoiceType = "expenses"
	InvoiceTypeReceipt    InvoiceType = "receipt"
	InvoiceTypeCreditNote InvoiceType = "credit_note"
	InvoiceTypeDebitNote  InvoiceType = "debit_note"
)

var invoiceNumberPrefixes = map[InvoiceType]string{
	InvoiceTypeFees:       "FEES",
	InvoiceTypeExpenses:   "EXP",
	InvoiceTypeReceipt:    "RCPT",
	InvoiceTypeCreditNote: "CN",
	InvoiceTypeDebitNote:  "DN",
}

func (t InvoiceType) String() string {
	return string(t)
}

// NumberPrefix returns the prefix used when formatting invoice numbers of this type
func (t InvoiceType) NumberPrefix() string {
	if p, ok := invoiceNumberPrefixes[t]; ok {
		return p
	}
	return "INV"
}

func (t InvoiceType) Validate() error {
	allowed := lo.Keys(invoiceNumberPrefixes)
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid invoice type").
			WithHint("Please provide a valid invoice type").
			WithReportableDetails(map[string]any{
				"field":   "type",
				"value":   t,
				"allowed": []InvoiceType{InvoiceTypeFees, InvoiceTypeExpenses, InvoiceTypeReceipt, InvoiceTypeCreditNote, InvoiceTypeDebitNote},
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceStatus is always derived from the paid amount except for cancellation
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

// IsOutstanding reports whether the invoice still expects money
func (s InvoiceStatus) IsOutstanding() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPartial
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusPending,
		InvoiceStatusPartial,
		InvoiceStatusPaid,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"field":   "status",
				"value":   s,
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter represents the filter options for listing invoices
type InvoiceFilter struct {
	*QueryFilter

	InvoiceIDs     []string        `json:"invoice_ids,omitempty" form:"invoice_ids"`
	CaseID         string          `json:"case_id,omitempty" form:"case_id"`
	InvoiceType    InvoiceType     `json:"invoice_type,omitempty" form:"invoice_type"`
	InvoiceStatus  []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	InvoiceNumbers []string        `json:"invoice_numbers,omitempty" form:"invoice_numbers"`
}

// NewInvoiceFilter creates a paginated invoice filter
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitInvoiceFilter creates an invoice filter without pagination
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
	if f == nil {
		return nil
	}

	if err := f.QueryFilter.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid pagination parameters").
			Mark(ierr.ErrValidation)
	}

	if f.InvoiceType != "" {
		if err := f.InvoiceType.Validate(); err != nil {
			return err
		}
	}

	for _, s := range f.InvoiceStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	return nil
}
