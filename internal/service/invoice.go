package service

import (
	"context"
	"time"

	"github.com/lexledger/lexledger/internal/api/dto"
	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/money"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/samber/lo"
)

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.CaseRepo.Exists(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ierr.NewError("case not found").
			WithHintf("Case %s was not found", req.CaseID).
			WithReportableDetails(map[string]any{
				"case_id": req.CaseID,
			}).
			Mark(ierr.ErrNotFound)
	}

	inv, err := req.ToInvoice(ctx, s.Config.Ledger.DefaultVATPercentage, s.Config.Ledger.Currency)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		number, err := s.InvoiceRepo.GetNextInvoiceNumber(txCtx, inv.InvoiceType, inv.IssuedDate.Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := inv.Validate(); err != nil {
			return err
		}

		return s.InvoiceRepo.Create(txCtx, inv)
	})
	if err != nil {
		s.Logger.Errorw("failed to create invoice",
			"error", err,
			"case_id", req.CaseID,
			"invoice_type", req.InvoiceType)
		captureUnexpected(ctx, s.Sentry, "create_invoice", inv.ID, err)
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"case_id", inv.CaseID,
		"total_amount", money.Format(inv.TotalAmount))

	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice_id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
		return dto.NewInvoiceResponse(inv)
	})

	resp := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	err := withInvoiceLock(ctx, s.ServiceParams, id, func(txCtx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		if inv.IsCancelled() {
			return s.rejectCancelledEdit(inv, req)
		}

		if req.InvoiceType != nil {
			inv.InvoiceType = *req.InvoiceType
		}
		if req.Description != nil {
			inv.Description = *req.Description
		}
		if req.DueDate != nil {
			inv.DueDate = req.DueDate
		}

		if req.ChangesTotals() {
			if req.Amount != nil {
				inv.Amount = *req.Amount
			}
			if req.VATPercentage != nil {
				inv.VATPercentage = *req.VATPercentage
			}
			if err := inv.ApplyTotals(); err != nil {
				return err
			}
		}

		// status is always re-derived from what was actually paid, never from the stored value
		paid, err := s.PaymentRepo.SumByInvoice(txCtx, inv.ID)
		if err != nil {
			return err
		}
		if money.Compare(inv.TotalAmount, paid) < 0 {
			return ierr.NewError("invoice total would fall below the amount already paid").
				WithHintf("Total %s cannot be less than the %s already paid", money.Format(inv.TotalAmount), money.Format(paid)).
				WithReportableDetails(map[string]any{
					"invoice_id":   inv.ID,
					"field":        "amount",
					"total_amount": money.Format(inv.TotalAmount),
					"amount_paid":  money.Format(paid),
				}).
				Mark(ierr.ErrConflict)
		}
		inv.AmountPaid = money.Round(paid)
		inv.RefreshStatus()

		if req.InvoiceStatus != nil {
			if err := s.applyRequestedStatus(inv, *req.InvoiceStatus); err != nil {
				return err
			}
		}

		if err := inv.Validate(); err != nil {
			return err
		}

		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(txCtx)
		return s.InvoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		s.Logger.Warnw("invoice update rejected",
			"error", err,
			"invoice_id", id)
		captureUnexpected(ctx, s.Sentry, "update_invoice", id, err)
		return nil, err
	}

	s.Logger.Infow("updated invoice",
		"invoice_id", inv.ID,
		"invoice_status", inv.InvoiceStatus,
		"total_amount", money.Format(inv.TotalAmount))

	return dto.NewInvoiceResponse(inv), nil
}

// rejectCancelledEdit accepts a repeated cancellation as a no-op and refuses every other change
func (s *invoiceService) rejectCancelledEdit(inv *invoice.Invoice, req dto.UpdateInvoiceRequest) error {
	onlyCancel := req.InvoiceStatus != nil &&
		*req.InvoiceStatus == types.InvoiceStatusCancelled &&
		req.InvoiceType == nil &&
		req.Description == nil &&
		req.DueDate == nil &&
		!req.ChangesTotals()
	if onlyCancel {
		return nil
	}

	return ierr.NewError("invoice is cancelled").
		WithHint("A cancelled invoice cannot be changed").
		WithReportableDetails(map[string]any{
			"invoice_id":     inv.ID,
			"invoice_status": inv.InvoiceStatus,
		}).
		Mark(ierr.ErrConflict)
}

// applyRequestedStatus treats a client supplied status as a cancellation request or as an assertion
// that must match the derived status
func (s *invoiceService) applyRequestedStatus(inv *invoice.Invoice, requested types.InvoiceStatus) error {
	switch {
	case requested == types.InvoiceStatusCancelled:
		return cancel(inv)
	case requested == inv.InvoiceStatus:
		return nil
	default:
		return ierr.NewError("invoice status cannot be set directly").
			WithHintf("Status is derived from payments and is currently %s; only cancellation can be requested", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"field":      "invoice_status",
				"requested":  requested,
				"derived":    inv.InvoiceStatus,
			}).
			Mark(ierr.ErrValidation)
	}
}

func (s *invoiceService) CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	var inv *invoice.Invoice
	err := withInvoiceLock(ctx, s.ServiceParams, id, func(txCtx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		if inv.IsCancelled() {
			return nil
		}

		if err := cancel(inv); err != nil {
			return err
		}

		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(txCtx)
		return s.InvoiceRepo.Update(txCtx, inv)
	})
	if err != nil {
		s.Logger.Warnw("invoice cancellation rejected",
			"error", err,
			"invoice_id", id)
		captureUnexpected(ctx, s.Sentry, "cancel_invoice", id, err)
		return nil, err
	}

	s.Logger.Infow("cancelled invoice", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)
	return dto.NewInvoiceResponse(inv), nil
}

// DeleteInvoice soft deletes an invoice that has no payments. Its number is never handed out again.
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	err := withInvoiceLock(ctx, s.ServiceParams, id, func(txCtx context.Context) error {
		inv, err := s.InvoiceRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		filter := types.NewNoLimitPaymentFilter()
		filter.InvoiceID = inv.ID
		count, err := s.PaymentRepo.Count(txCtx, filter)
		if err != nil {
			return err
		}
		if count > 0 {
			return ierr.NewError("invoice has payments").
				WithHint("Remove the invoice's payments before deleting it").
				WithReportableDetails(map[string]any{
					"invoice_id":    inv.ID,
					"payment_count": count,
				}).
				Mark(ierr.ErrConflict)
		}

		return s.InvoiceRepo.Delete(txCtx, inv.ID)
	})
	if err != nil {
		s.Logger.Warnw("invoice deletion rejected",
			"error", err,
			"invoice_id", id)
		captureUnexpected(ctx, s.Sentry, "delete_invoice", id, err)
		return err
	}

	s.Logger.Infow("deleted invoice", "invoice_id", id)
	return nil
}

func cancel(inv *invoice.Invoice) error {
	if !invoice.CanTransition(inv.InvoiceStatus, types.InvoiceStatusCancelled) {
		return ierr.NewError("invoice cannot be cancelled").
			WithHintf("A %s invoice cannot be cancelled", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{
				"invoice_id":     inv.ID,
				"invoice_status": inv.InvoiceStatus,
			}).
			Mark(ierr.ErrConflict)
	}

	now := time.Now().UTC()
	inv.InvoiceStatus = types.InvoiceStatusCancelled
	inv.CancelledAt = &now
	return nil
}
