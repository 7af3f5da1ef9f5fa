package payment

import (
	"time"

	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/shopspring/decimal"
)

// Payment is money received against an invoice. Payments are immutable once recorded;
// corrections are made by removing the payment and recording a new one.
type Payment struct {
	ID        string `db:"id" json:"id"`
	InvoiceID string `db:"invoice_id" json:"invoice_id"`
	// CaseID is copied from the invoice so payments can be listed per case
	CaseID string `db:"case_id" json:"case_id"`
	// ReceiptNumber is the short reference printed on the client's receipt
	ReceiptNumber string              `db:"receipt_number" json:"receipt_number"`
	Amount        decimal.Decimal     `db:"amount" json:"amount"`
	Currency      string              `db:"currency" json:"currency"`
	Method        types.PaymentMethod `db:"method" json:"method"`
	PaymentDate   time.Time           `db:"payment_date" json:"payment_date"`
	Notes         string              `db:"notes" json:"notes,omitempty"`

	types.BaseModel
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.InvoiceID == "" {
		return ierr.NewError("invoice_id is required").
			WithHint("Payment must reference an invoice").
			Mark(ierr.ErrValidation)
	}

	if !p.Amount.IsPositive() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{
				"invoice_id": p.InvoiceID,
				"amount":     p.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if err := p.Method.Validate(); err != nil {
		return err
	}

	if p.PaymentDate.IsZero() {
		return ierr.NewError("payment_date is required").
			WithHint("Payment date is required").
			Mark(ierr.ErrValidation)
	}

	return nil
}
