package invoice

import (
	"time"

	"github.com/lexledger/lexledger/internal/domain/money"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is a billing document issued against a legal case.
// VATAmount, TotalAmount, AmountPaid and InvoiceStatus are derived and never set by clients.
type Invoice struct {
	ID            string              `db:"id" json:"id"`
	CaseID        string              `db:"case_id" json:"case_id"`
	InvoiceNumber string              `db:"invoice_number" json:"invoice_number"`
	InvoiceType   types.InvoiceType   `db:"invoice_type" json:"invoice_type"`
	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	Currency      string              `db:"currency" json:"currency"`
	Amount        decimal.Decimal     `db:"amount" json:"amount"`
	VATPercentage decimal.Decimal     `db:"vat_percentage" json:"vat_percentage"`
	VATAmount     decimal.Decimal     `db:"vat_amount" json:"vat_amount"`
	TotalAmount   decimal.Decimal     `db:"total_amount" json:"total_amount"`
	// AmountPaid mirrors sum(payments.amount) and is rewritten in the same transaction as every payment change
	AmountPaid  decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Description string          `db:"description" json:"description,omitempty"`
	IssuedDate  time.Time       `db:"issued_date" json:"issued_date"`
	DueDate     *time.Time      `db:"due_date" json:"due_date,omitempty"`
	CancelledAt *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Version     int             `db:"version" json:"version"`
	types.BaseModel
}

// AmountRemaining is what the client still owes on the invoice
func (i *Invoice) AmountRemaining() decimal.Decimal {
	return money.Round(i.TotalAmount.Sub(i.AmountPaid))
}

// IsCancelled reports whether the explicit cancellation action ran on this invoice
func (i *Invoice) IsCancelled() bool {
	return i.InvoiceStatus == types.InvoiceStatusCancelled
}

// ApplyTotals recomputes the VAT and total from the current amount and rate
func (i *Invoice) ApplyTotals() error {
	vat, total, err := money.ComputeTotals(i.Amount, i.VATPercentage)
	if err != nil {
		return err
	}
	i.Amount = money.Round(i.Amount)
	i.VATAmount = vat
	i.TotalAmount = total
	return nil
}

// RefreshStatus re-derives the status from the total and the paid amount
func (i *Invoice) RefreshStatus() {
	i.InvoiceStatus = DeriveStatus(i.TotalAmount, i.AmountPaid, i.IsCancelled())
}

// Validate checks the invariants every persisted invoice must hold
func (i *Invoice) Validate() error {
	if i.CaseID == "" {
		return ierr.NewError("case_id is required").
			WithHint("Please provide the case the invoice belongs to").
			Mark(ierr.ErrValidation)
	}

	if err := i.InvoiceType.Validate(); err != nil {
		return err
	}

	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}

	if !i.Amount.IsPositive() {
		return ierr.NewError("amount must be greater than zero").
			WithHint("Invoice amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"amount":     i.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if i.VATPercentage.IsNegative() {
		return ierr.NewError("vat_percentage must not be negative").
			WithHint("VAT percentage must not be negative").
			WithReportableDetails(map[string]any{
				"invoice_id":     i.ID,
				"vat_percentage": i.VATPercentage.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	vat, total, err := money.ComputeTotals(i.Amount, i.VATPercentage)
	if err != nil {
		return err
	}
	if !money.Equal(vat, i.VATAmount) || !money.Equal(total, i.TotalAmount) {
		return ierr.NewError("invoice totals are inconsistent").
			WithHint("VAT and total must be derived from amount and VAT percentage").
			WithReportableDetails(map[string]any{
				"invoice_id":   i.ID,
				"vat_amount":   i.VATAmount.String(),
				"total_amount": i.TotalAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if i.AmountPaid.IsNegative() || money.Compare(i.AmountPaid, i.TotalAmount) > 0 {
		return ierr.NewError("amount paid is out of range").
			WithHint("Amount paid cannot exceed the invoice total").
			WithReportableDetails(map[string]any{
				"invoice_id":   i.ID,
				"amount_paid":  i.AmountPaid.String(),
				"total_amount": i.TotalAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}
