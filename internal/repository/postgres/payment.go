package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lexledger/lexledger/internal/domain/payment"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, tenant_id, invoice_id, case_id, receipt_number, amount, currency, method,
	payment_date, notes, status, created_at, updated_at, created_by, updated_by`

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	span := StartRepositorySpan(ctx, "payment", "create", map[string]interface{}{
		"payment_id": p.ID,
		"invoice_id": p.InvoiceID,
	})
	defer FinishSpan(span)

	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"amount", p.Amount,
	)

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (
			:id, :tenant_id, :invoice_id, :case_id, :receipt_number, :amount, :currency, :method,
			:payment_date, :notes, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		SetSpanError(span, err)
		if code, _ := pqErrorCode(err); code == pqUniqueViolation {
			return ierr.WithError(err).
				WithHint("Payment with same receipt number already exists").
				WithReportableDetails(map[string]any{
					"payment_id":     p.ID,
					"receipt_number": p.ReceiptNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			WithReportableDetails(map[string]any{
				"invoice_id": p.InvoiceID,
			}).
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	span := StartRepositorySpan(ctx, "payment", "get", map[string]interface{}{
		"payment_id": id,
	})
	defer FinishSpan(span)

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND tenant_id = $2 AND status = $3`

	var p payment.Payment
	if err := r.db.GetContext(ctx, &p, query, id, types.GetTenantID(ctx), types.StatusPublished); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Payment with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"payment_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}

	return &p, nil
}

// Delete soft deletes a payment so it no longer counts toward its invoice
func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	span := StartRepositorySpan(ctx, "payment", "delete", map[string]interface{}{
		"payment_id": id,
	})
	defer FinishSpan(span)

	query := `
		UPDATE payments SET
			status = :deleted,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
		"status":     types.StatusPublished,
		"deleted":    types.StatusDeleted,
		"updated_at": time.Now().UTC(),
		"updated_by": types.GetUserID(ctx),
	})
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to remove payment").
			Mark(ierr.ErrDatabase)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", id).
			WithReportableDetails(map[string]any{
				"payment_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}

	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}

	span := StartRepositorySpan(ctx, "payment", "list", map[string]interface{}{
		"invoice_id": filter.InvoiceID,
		"case_id":    filter.CaseID,
	})
	defer FinishSpan(span)

	where := r.buildWhere(ctx, filter)
	// oldest first so receipts read in the order money arrived
	query := fmt.Sprintf("SELECT %s FROM payments %s ORDER BY payment_date ASC, created_at ASC, id ASC %s",
		paymentColumns,
		where.String(),
		paginate(filter.QueryFilter, where.params),
	)

	rows, err := r.db.NamedQueryContext(ctx, query, where.params)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	payments := make([]*payment.Payment, 0)
	for rows.Next() {
		var p payment.Payment
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read payment").
				Mark(ierr.ErrDatabase)
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}

	return payments, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}

	where := r.buildWhere(ctx, filter)
	rows, err := r.db.NamedQueryContext(ctx, "SELECT COUNT(*) FROM payments "+where.String(), where.params)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count payments").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to count payments").
				Mark(ierr.ErrDatabase)
		}
	}
	return count, nil
}

func (r *paymentRepository) SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	span := StartRepositorySpan(ctx, "payment", "sum_by_invoice", map[string]interface{}{
		"invoice_id": invoiceID,
	})
	defer FinishSpan(span)

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE invoice_id = $1 AND tenant_id = $2 AND status = $3`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, invoiceID, types.GetTenantID(ctx), types.StatusPublished); err != nil {
		SetSpanError(span, err)
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to sum payments").
			WithReportableDetails(map[string]any{
				"invoice_id": invoiceID,
			}).
			Mark(ierr.ErrDatabase)
	}

	return total, nil
}

func (r *paymentRepository) buildWhere(ctx context.Context, filter *types.PaymentFilter) *whereBuilder {
	where := newTenantWhere(ctx, "")
	if len(filter.PaymentIDs) > 0 {
		where.add("id = ANY(:payment_ids)", "payment_ids", pq.Array(filter.PaymentIDs))
	}
	if filter.InvoiceID != "" {
		where.add("invoice_id = :invoice_id", "invoice_id", filter.InvoiceID)
	}
	if filter.CaseID != "" {
		where.add("case_id = :case_id", "case_id", filter.CaseID)
	}
	return where
}
