package dto

import (
	"context"
	"time"

	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/money"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/lexledger/lexledger/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest represents the request payload for creating a new invoice
type CreateInvoiceRequest struct {
	// case_id is the case in the case registry this invoice is billed against
	CaseID string `json:"case_id" validate:"required"`

	// invoice_type is one of fees, expenses, receipt, credit_note or debit_note
	InvoiceType types.InvoiceType `json:"invoice_type" validate:"required"`

	// amount is the base amount before VAT, with at most two decimal places
	Amount decimal.Decimal `json:"amount" validate:"required" swaggertype:"string"`

	// vat_percentage defaults to the configured rate when omitted
	VATPercentage *decimal.Decimal `json:"vat_percentage,omitempty" swaggertype:"string"`

	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := r.InvoiceType.Validate(); err != nil {
		return err
	}

	if err := validatePositiveAmount("amount", r.Amount); err != nil {
		return err
	}

	if r.VATPercentage != nil {
		if err := validateRate(*r.VATPercentage); err != nil {
			return err
		}
	}

	return nil
}

// ToInvoice builds the invoice with its totals computed. The invoice number is assigned by the service.
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context, defaultVAT decimal.Decimal, currency string) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		CaseID:        r.CaseID,
		InvoiceType:   r.InvoiceType,
		InvoiceStatus: types.InvoiceStatusPending,
		Currency:      currency,
		Amount:        r.Amount,
		VATPercentage: lo.FromPtrOr(r.VATPercentage, defaultVAT),
		AmountPaid:    decimal.Zero,
		Description:   r.Description,
		IssuedDate:    time.Now().UTC(),
		DueDate:       r.DueDate,
		Version:       1,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	if err := inv.ApplyTotals(); err != nil {
		return nil, err
	}
	inv.RefreshStatus()

	return inv, nil
}

// UpdateInvoiceRequest carries the fields a client may change. Derived fields are absent on purpose:
// vat_amount and total_amount are recomputed and invoice_status is only accepted as a cancellation
// or when it equals the derived status.
type UpdateInvoiceRequest struct {
	InvoiceType   *types.InvoiceType   `json:"invoice_type,omitempty"`
	Amount        *decimal.Decimal     `json:"amount,omitempty" swaggertype:"string"`
	VATPercentage *decimal.Decimal     `json:"vat_percentage,omitempty" swaggertype:"string"`
	Description   *string              `json:"description,omitempty"`
	DueDate       *time.Time           `json:"due_date,omitempty"`
	InvoiceStatus *types.InvoiceStatus `json:"invoice_status,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	if r.InvoiceType != nil {
		if err := r.InvoiceType.Validate(); err != nil {
			return err
		}
	}

	if r.Amount != nil {
		if err := validatePositiveAmount("amount", *r.Amount); err != nil {
			return err
		}
	}

	if r.VATPercentage != nil {
		if err := validateRate(*r.VATPercentage); err != nil {
			return err
		}
	}

	if r.InvoiceStatus != nil {
		if err := r.InvoiceStatus.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ChangesTotals reports whether applying the request requires recomputing VAT and total
func (r *UpdateInvoiceRequest) ChangesTotals() bool {
	return r.Amount != nil || r.VATPercentage != nil
}

// InvoiceResponse renders an invoice with money as two-decimal strings
type InvoiceResponse struct {
	ID              string              `json:"id"`
	CaseID          string              `json:"case_id"`
	InvoiceNumber   string              `json:"invoice_number"`
	InvoiceType     types.InvoiceType   `json:"invoice_type"`
	InvoiceStatus   types.InvoiceStatus `json:"invoice_status"`
	Currency        string              `json:"currency"`
	Amount          string              `json:"amount"`
	VATPercentage   string              `json:"vat_percentage"`
	VATAmount       string              `json:"vat_amount"`
	TotalAmount     string              `json:"total_amount"`
	AmountPaid      string              `json:"amount_paid"`
	AmountRemaining string              `json:"amount_remaining"`
	Description     string              `json:"description,omitempty"`
	IssuedDate      time.Time           `json:"issued_date"`
	DueDate         *time.Time          `json:"due_date,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	Version         int                 `json:"version"`
	TenantID        string              `json:"tenant_id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	CreatedBy       string              `json:"created_by"`
	UpdatedBy       string              `json:"updated_by"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	if inv == nil {
		return nil
	}

	return &InvoiceResponse{
		ID:              inv.ID,
		CaseID:          inv.CaseID,
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceType:     inv.InvoiceType,
		InvoiceStatus:   inv.InvoiceStatus,
		Currency:        inv.Currency,
		Amount:          money.Format(inv.Amount),
		VATPercentage:   inv.VATPercentage.String(),
		VATAmount:       money.Format(inv.VATAmount),
		TotalAmount:     money.Format(inv.TotalAmount),
		AmountPaid:      money.Format(inv.AmountPaid),
		AmountRemaining: money.Format(inv.AmountRemaining()),
		Description:     inv.Description,
		IssuedDate:      inv.IssuedDate,
		DueDate:         inv.DueDate,
		CancelledAt:     inv.CancelledAt,
		Version:         inv.Version,
		TenantID:        inv.TenantID,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		CreatedBy:       inv.CreatedBy,
		UpdatedBy:       inv.UpdatedBy,
	}
}

// ListInvoicesResponse represents the paginated response for listing invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

func validatePositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ierr.NewErrorf("%s must be greater than zero", field).
			WithHintf("%s must be greater than zero", field).
			WithReportableDetails(map[string]any{
				"field": field,
				"value": amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if _, err := money.Normalize(amount); err != nil {
		return ierr.WithError(err).
			WithReportableDetails(map[string]any{
				"field": field,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return ierr.WithError(money.ErrInvalidRate).
			WithHint("VAT percentage must not be negative").
			WithReportableDetails(map[string]any{
				"field": "vat_percentage",
				"value": rate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
