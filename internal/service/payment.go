package service

import (
	"context"
	"time"

	"github.com/lexledger/lexledger/internal/api/dto"
	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/money"
	"github.com/lexledger/lexledger/internal/domain/payment"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/samber/lo"
)

// PaymentService defines the interface for payment operations
type PaymentService interface {
	// AddPayment records a payment and moves the invoice status forward
	AddPayment(ctx context.Context, invoiceID string, req dto.CreatePaymentRequest) (*dto.AddPaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	// ListPayments returns an invoice's payments, oldest first
	ListPayments(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error)
	ListCasePayments(ctx context.Context, caseID string) (*dto.ListPaymentsResponse, error)
	// RemovePayment reverses a payment; the invoice status may move backward
	RemovePayment(ctx context.Context, id string) (*dto.InvoiceResponse, error)
}

type paymentService struct {
	ServiceParams
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
	}
}

func (s *paymentService) AddPayment(ctx context.Context, invoiceID string, req dto.CreatePaymentRequest) (*dto.AddPaymentResponse, error) {
	if invoiceID == "" {
		return nil, ierr.NewError("invoice_id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		inv *invoice.Invoice
		p   *payment.Payment
	)
	err := withInvoiceLock(ctx, s.ServiceParams, invoiceID, func(txCtx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(txCtx, invoiceID)
		if err != nil {
			return err
		}

		if inv.IsCancelled() {
			return ierr.NewError("invoice is cancelled").
				WithHint("Payments cannot be recorded against a cancelled invoice").
				WithReportableDetails(map[string]any{
					"invoice_id": inv.ID,
				}).
				Mark(ierr.ErrConflict)
		}

		paidSoFar, err := s.PaymentRepo.SumByInvoice(txCtx, inv.ID)
		if err != nil {
			return err
		}

		newPaid := money.Round(paidSoFar.Add(req.Amount))
		if money.Compare(newPaid, inv.TotalAmount) > 0 {
			remaining := money.Round(inv.TotalAmount.Sub(paidSoFar))
			return ierr.NewError("payment exceeds remaining balance").
				WithHintf("Payment of %s exceeds the remaining balance of %s", money.Format(req.Amount), money.Format(remaining)).
				WithReportableDetails(map[string]any{
					"invoice_id":       inv.ID,
					"field":            "amount",
					"amount":           money.Format(req.Amount),
					"amount_remaining": money.Format(remaining),
				}).
				Mark(ierr.ErrOverpayment)
		}

		p = req.ToPayment(txCtx, inv)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.PaymentRepo.Create(txCtx, p); err != nil {
			return err
		}

		inv.AmountPaid = newPaid
		inv.RefreshStatus()
		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(txCtx)
		return s.InvoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		s.Logger.Warnw("payment rejected",
			"error", err,
			"invoice_id", invoiceID,
			"amount", req.Amount.String())
		captureUnexpected(ctx, s.Sentry, "add_payment", invoiceID, err)
		return nil, err
	}

	s.Logger.Infow("recorded payment",
		"payment_id", p.ID,
		"invoice_id", inv.ID,
		"amount", money.Format(p.Amount),
		"invoice_status", inv.InvoiceStatus)

	return &dto.AddPaymentResponse{
		Payment: dto.NewPaymentResponse(p),
		Invoice: dto.NewInvoiceResponse(inv),
	}, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	if id == "" {
		return nil, ierr.NewError("payment_id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID string) (*dto.ListPaymentsResponse, error) {
	if _, err := s.InvoiceRepo.Get(ctx, invoiceID); err != nil {
		return nil, err
	}

	filter := types.NewNoLimitPaymentFilter()
	filter.InvoiceID = invoiceID
	return s.listPayments(ctx, filter)
}

func (s *paymentService) ListCasePayments(ctx context.Context, caseID string) (*dto.ListPaymentsResponse, error) {
	if _, err := s.CaseRepo.Get(ctx, caseID); err != nil {
		return nil, err
	}

	filter := types.NewNoLimitPaymentFilter()
	filter.CaseID = caseID
	return s.listPayments(ctx, filter)
}

func (s *paymentService) listPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(payments, func(p *payment.Payment, _ int) *dto.PaymentResponse {
		return dto.NewPaymentResponse(p)
	})

	resp := types.NewListResponse(items, len(items), filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *paymentService) RemovePayment(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	err = withInvoiceLock(ctx, s.ServiceParams, p.InvoiceID, func(txCtx context.Context) error {
		inv, err = s.InvoiceRepo.GetForUpdate(txCtx, p.InvoiceID)
		if err != nil {
			return err
		}

		// removed by a concurrent request while we waited for the lock
		if _, err := s.PaymentRepo.Get(txCtx, id); err != nil {
			return err
		}

		if err := s.PaymentRepo.Delete(txCtx, id); err != nil {
			return err
		}

		paid, err := s.PaymentRepo.SumByInvoice(txCtx, inv.ID)
		if err != nil {
			return err
		}

		inv.AmountPaid = money.Round(paid)
		inv.RefreshStatus()
		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(txCtx)
		return s.InvoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		s.Logger.Warnw("payment removal rejected",
			"error", err,
			"payment_id", id,
			"invoice_id", p.InvoiceID)
		captureUnexpected(ctx, s.Sentry, "remove_payment", p.InvoiceID, err)
		return nil, err
	}

	s.Logger.Infow("removed payment",
		"payment_id", id,
		"invoice_id", inv.ID,
		"invoice_status", inv.InvoiceStatus)

	return dto.NewInvoiceResponse(inv), nil
}
