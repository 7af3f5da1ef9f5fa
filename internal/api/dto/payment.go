package dto

import (
	"context"
	"time"

	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/money"
	"github.com/lexledger/lexledger/internal/domain/payment"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/lexledger/lexledger/internal/validator"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest records money received against an invoice
type CreatePaymentRequest struct {
	Amount decimal.Decimal     `json:"amount" validate:"required" swaggertype:"string"`
	Method types.PaymentMethod `json:"method" validate:"required"`
	Notes  string              `json:"notes,omitempty"`
}

func (r *CreatePaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := validatePositiveAmount("amount", r.Amount); err != nil {
		return err
	}

	return r.Method.Validate()
}

// ToPayment builds the payment for inv. The payment date is the time of recording.
func (r *CreatePaymentRequest) ToPayment(ctx context.Context, inv *invoice.Invoice) *payment.Payment {
	return &payment.Payment{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:     inv.ID,
		CaseID:        inv.CaseID,
		ReceiptNumber: types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_RECEIPT),
		Amount:        money.Round(r.Amount),
		Currency:      inv.Currency,
		Method:        r.Method,
		PaymentDate:   time.Now().UTC(),
		Notes:         r.Notes,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// PaymentResponse represents a payment response
type PaymentResponse struct {
	ID            string              `json:"id"`
	InvoiceID     string              `json:"invoice_id"`
	CaseID        string              `json:"case_id"`
	ReceiptNumber string              `json:"receipt_number"`
	Amount        string              `json:"amount"`
	Currency      string              `json:"currency"`
	Method        types.PaymentMethod `json:"method"`
	PaymentDate   time.Time           `json:"payment_date"`
	Notes         string              `json:"notes,omitempty"`
	TenantID      string              `json:"tenant_id"`
	CreatedAt     time.Time           `json:"created_at"`
	CreatedBy     string              `json:"created_by"`
}

// AddPaymentResponse returns the recorded payment with the invoice as it stands afterwards
type AddPaymentResponse struct {
	Payment *PaymentResponse `json:"payment"`
	Invoice *InvoiceResponse `json:"invoice"`
}

// ListPaymentsResponse represents a paginated list of payments
type ListPaymentsResponse = types.ListResponse[*PaymentResponse]

// NewPaymentResponse creates a new payment response from a payment
func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}

	return &PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		CaseID:        p.CaseID,
		ReceiptNumber: p.ReceiptNumber,
		Amount:        money.Format(p.Amount),
		Currency:      p.Currency,
		Method:        p.Method,
		PaymentDate:   p.PaymentDate,
		Notes:         p.Notes,
		TenantID:      p.TenantID,
		CreatedAt:     p.CreatedAt,
		CreatedBy:     p.CreatedBy,
	}
}
