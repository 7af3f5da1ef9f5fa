package postgres

import (
	"context"
	"fmt"
	"time"

	domainInvoice "github.com/lexledger/lexledger/internal/domain/invoice"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/postgres"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

const invoiceColumns = `id, tenant_id, case_id, invoice_number, invoice_type, invoice_status, currency,
	amount, vat_percentage, vat_amount, total_amount, amount_paid, description, issued_date,
	due_date, cancelled_at, version, status, created_at, updated_at, created_by, updated_by`

var invoiceSortColumns = map[string]bool{
	"created_at":     true,
	"issued_date":    true,
	"due_date":       true,
	"invoice_number": true,
	"total_amount":   true,
}

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) domainInvoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *domainInvoice.Invoice) error {
	span := StartRepositorySpan(ctx, "invoice", "create", map[string]interface{}{
		"invoice_id": inv.ID,
		"case_id":    inv.CaseID,
		"tenant_id":  inv.TenantID,
	})
	defer FinishSpan(span)

	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"tenant_id", inv.TenantID,
	)

	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES (
			:id, :tenant_id, :case_id, :invoice_number, :invoice_type, :invoice_status, :currency,
			:amount, :vat_percentage, :vat_amount, :total_amount, :amount_paid, :description, :issued_date,
			:due_date, :cancelled_at, :version, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		SetSpanError(span, err)

		if code, _ := pqErrorCode(err); code == pqUniqueViolation {
			return ierr.WithError(err).
				WithHint("Invoice with same invoice number already exists").
				WithReportableDetails(map[string]any{
					"invoice_id":     inv.ID,
					"invoice_number": inv.InvoiceNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("invoice creation failed").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*domainInvoice.Invoice, error) {
	return r.get(ctx, id, false)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*domainInvoice.Invoice, error) {
	return r.get(ctx, id, true)
}

func (r *invoiceRepository) get(ctx context.Context, id string, forUpdate bool) (*domainInvoice.Invoice, error) {
	span := StartRepositorySpan(ctx, "invoice", "get", map[string]interface{}{
		"invoice_id": id,
		"for_update": forUpdate,
	})
	defer FinishSpan(span)

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND tenant_id = $2 AND status = $3`
	if forUpdate {
		// row lock held until the surrounding transaction commits or rolls back
		query += ` FOR UPDATE`
	}

	var inv domainInvoice.Invoice
	if err := r.db.GetContext(ctx, &inv, query, id, types.GetTenantID(ctx), types.StatusPublished); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	return &inv, nil
}

// Update writes the mutable columns guarded by the version the caller read.
// On success inv.Version is advanced to the stored value.
func (r *invoiceRepository) Update(ctx context.Context, inv *domainInvoice.Invoice) error {
	span := StartRepositorySpan(ctx, "invoice", "update", map[string]interface{}{
		"invoice_id": inv.ID,
		"version":    inv.Version,
	})
	defer FinishSpan(span)

	r.logger.Debugw("updating invoice",
		"invoice_id", inv.ID,
		"invoice_status", inv.InvoiceStatus,
		"amount_paid", inv.AmountPaid,
		"version", inv.Version,
	)

	inv.UpdatedAt = time.Now().UTC()
	inv.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE invoices SET
			invoice_type = :invoice_type,
			invoice_status = :invoice_status,
			amount = :amount,
			vat_percentage = :vat_percentage,
			vat_amount = :vat_amount,
			total_amount = :total_amount,
			amount_paid = :amount_paid,
			description = :description,
			due_date = :due_date,
			cancelled_at = :cancelled_at,
			version = version + 1,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status AND version = :version`

	result, err := r.db.NamedExecContext(ctx, query, inv)
	if err != nil {
		SetSpanError(span, err)
		if code, _ := pqErrorCode(err); code == pqCheckViolation {
			return ierr.WithError(err).
				WithHint("Invoice totals would be inconsistent with recorded payments").
				WithReportableDetails(map[string]any{
					"invoice_id": inv.ID,
				}).
				Mark(ierr.ErrConflict)
		}
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}

	if rows == 0 {
		// either the invoice is gone or somebody else updated it first
		if _, getErr := r.Get(ctx, inv.ID); getErr != nil {
			return getErr
		}
		return ierr.NewError("invoice version mismatch").
			WithHintf("Invoice %s was modified concurrently, reload and retry", inv.ID).
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version++
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	span := StartRepositorySpan(ctx, "invoice", "delete", map[string]interface{}{
		"invoice_id": id,
	})
	defer FinishSpan(span)

	r.logger.Debugw("deleting invoice",
		"invoice_id", id,
		"tenant_id", types.GetTenantID(ctx),
	)

	query := `
		UPDATE invoices SET
			status = :deleted,
			version = version + 1,
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
			WithHint("Failed to delete invoice").
			Mark(ierr.ErrDatabase)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", id).
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}

	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*domainInvoice.Invoice, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}

	span := StartRepositorySpan(ctx, "invoice", "list", map[string]interface{}{
		"case_id": filter.CaseID,
	})
	defer FinishSpan(span)

	where := r.buildWhere(ctx, filter)
	query := fmt.Sprintf("SELECT %s FROM invoices %s %s %s",
		invoiceColumns,
		where.String(),
		orderBy(filter.QueryFilter, invoiceSortColumns, "created_at"),
		paginate(filter.QueryFilter, where.params),
	)

	rows, err := r.db.NamedQueryContext(ctx, query, where.params)
	if err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	invoices := make([]*domainInvoice.Invoice, 0)
	for rows.Next() {
		var inv domainInvoice.Invoice
		if err := rows.StructScan(&inv); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read invoice").
				Mark(ierr.ErrDatabase)
		}
		invoices = append(invoices, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}

	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}

	span := StartRepositorySpan(ctx, "invoice", "count", nil)
	defer FinishSpan(span)

	where := r.buildWhere(ctx, filter)
	rows, err := r.db.NamedQueryContext(ctx, "SELECT COUNT(*) FROM invoices "+where.String(), where.params)
	if err != nil {
		SetSpanError(span, err)
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithHint("Failed to count invoices").
				Mark(ierr.ErrDatabase)
		}
	}
	return count, nil
}

func (r *invoiceRepository) buildWhere(ctx context.Context, filter *types.InvoiceFilter) *whereBuilder {
	where := newTenantWhere(ctx, "")
	if len(filter.InvoiceIDs) > 0 {
		where.add("id = ANY(:invoice_ids)", "invoice_ids", pq.Array(filter.InvoiceIDs))
	}
	if filter.CaseID != "" {
		where.add("case_id = :case_id", "case_id", filter.CaseID)
	}
	if filter.InvoiceType != "" {
		where.add("invoice_type = :invoice_type", "invoice_type", filter.InvoiceType)
	}
	if len(filter.InvoiceStatus) > 0 {
		statuses := lo.Map(filter.InvoiceStatus, func(s types.InvoiceStatus, _ int) string { return string(s) })
		where.add("invoice_status = ANY(:invoice_statuses)", "invoice_statuses", pq.Array(statuses))
	}
	if len(filter.InvoiceNumbers) > 0 {
		where.add("invoice_number = ANY(:invoice_numbers)", "invoice_numbers", pq.Array(filter.InvoiceNumbers))
	}
	return where
}

// GetNextInvoiceNumber advances the per tenant, prefix and year counter atomically.
// Numbers are never handed out twice, even when the invoice that used one is deleted.
func (r *invoiceRepository) GetNextInvoiceNumber(ctx context.Context, invoiceType types.InvoiceType, year int) (string, error) {
	span := StartRepositorySpan(ctx, "invoice", "get_next_invoice_number", map[string]interface{}{
		"invoice_type": invoiceType,
		"year":         year,
	})
	defer FinishSpan(span)

	tenantID := types.GetTenantID(ctx)
	prefix := invoiceType.NumberPrefix()

	query := `
		INSERT INTO invoice_sequences (tenant_id, prefix, year, last_value, created_at, updated_at)
		VALUES ($1, $2, $3, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (tenant_id, prefix, year) DO UPDATE
		SET last_value = invoice_sequences.last_value + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING last_value`

	var lastValue int64
	if err := r.db.GetContext(ctx, &lastValue, query, tenantID, prefix, year); err != nil {
		SetSpanError(span, err)
		return "", ierr.WithError(err).
			WithHint("invoice number generation failed").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("generated invoice number",
		"tenant_id", tenantID,
		"prefix", prefix,
		"year", year,
		"sequence", lastValue,
	)

	return fmt.Sprintf("%s-%04d-%06d", prefix, year, lastValue), nil
}

func (r *invoiceRepository) GetStats(ctx context.Context) (*domainInvoice.Stats, error) {
	span := StartRepositorySpan(ctx, "invoice", "get_stats", nil)
	defer FinishSpan(span)

	query := `
		SELECT
			COUNT(*) AS total_invoices,
			COUNT(*) FILTER (WHERE invoice_status = ANY($3)) AS pending_invoices,
			COALESCE(SUM(amount_paid), 0) AS total_revenue
		FROM invoices
		WHERE tenant_id = $1 AND status = $2`

	outstanding := pq.Array([]string{
		string(types.InvoiceStatusPending),
		string(types.InvoiceStatusPartial),
	})

	var stats domainInvoice.Stats
	if err := r.db.GetContext(ctx, &stats, query, types.GetTenantID(ctx), types.StatusPublished, outstanding); err != nil {
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to aggregate invoices").
			Mark(ierr.ErrDatabase)
	}

	return &stats, nil
}
