package service

import (
	"context"

	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/sentry"
)

// withInvoiceLock runs fn inside a database transaction while holding the in-process lock for invoiceID.
// fn is expected to re-read the invoice with GetForUpdate so other instances are excluded by the row lock.
func withInvoiceLock(ctx context.Context, params ServiceParams, invoiceID string, fn func(ctx context.Context) error) error {
	unlock, err := params.Locker.Lock(ctx, invoiceID)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("acquire invoice lock").
			WithHint("Request was cancelled while waiting for the invoice").
			WithReportableDetails(map[string]any{
				"invoice_id": invoiceID,
			}).
			Mark(ierr.ErrSystem)
	}
	defer unlock()

	return params.DB.WithTx(ctx, fn)
}

// isLedgerRejection reports whether err is an ordinary business outcome rather than a fault
func isLedgerRejection(err error) bool {
	return ierr.IsValidation(err) ||
		ierr.IsNotFound(err) ||
		ierr.IsAlreadyExists(err) ||
		ierr.IsConflict(err) ||
		ierr.IsVersionConflict(err) ||
		ierr.IsOverpayment(err)
}

// captureUnexpected reports faults to sentry; rejections only leave a breadcrumb
func captureUnexpected(ctx context.Context, svc *sentry.Service, operation, invoiceID string, err error) {
	if svc == nil || err == nil {
		return
	}

	if isLedgerRejection(err) {
		svc.AddBreadcrumb(ctx, "ledger", operation+" rejected", map[string]interface{}{
			"invoice_id": invoiceID,
			"error":      err.Error(),
		})
		return
	}

	svc.CaptureLedgerError(ctx, operation, invoiceID, err)
}
