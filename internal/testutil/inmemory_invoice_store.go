package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lexledger/lexledger/internal/domain/invoice"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	seqMu     sync.Mutex
	sequences map[string]int64
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		sequences:     make(map[string]int64),
	}
}

// Helper to copy invoice
func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}

	c := *inv
	if inv.DueDate != nil {
		c.DueDate = lo.ToPtr(*inv.DueDate)
	}
	if inv.CancelledAt != nil {
		c.CancelledAt = lo.ToPtr(*inv.CancelledAt)
	}
	return &c
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if inv.InvoiceNumber != "" {
		count, err := s.InMemoryStore.Count(ctx, inv.InvoiceNumber, func(ctx context.Context, existing *invoice.Invoice, _ interface{}) bool {
			return existing.TenantID == inv.TenantID && existing.InvoiceNumber == inv.InvoiceNumber
		})
		if err != nil {
			return err
		}
		if count > 0 {
			return ierr.NewError("invoice number already exists").
				WithHint("An invoice with this number already exists").
				WithReportableDetails(map[string]any{
					"invoice_number": inv.InvoiceNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	if inv.Version == 0 {
		inv.Version = 1
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !s.visible(ctx, inv) {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice %s was not found", id).
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

// GetForUpdate has no row lock to take in memory
func (s *InMemoryInvoiceStore) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}

	err := s.InMemoryStore.Modify(ctx, inv.ID, func(existing *invoice.Invoice) (*invoice.Invoice, error) {
		if !s.visible(ctx, existing) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice %s was not found", inv.ID).
				Mark(ierr.ErrNotFound)
		}
		if existing.Version != inv.Version {
			return nil, ierr.NewError("invoice version mismatch").
				WithHint("The invoice was modified by another request, please retry").
				WithReportableDetails(map[string]any{
					"invoice_id":       inv.ID,
					"expected_version": inv.Version,
					"current_version":  existing.Version,
				}).
				Mark(ierr.ErrVersionConflict)
		}
		if inv.AmountPaid.IsNegative() || inv.AmountPaid.GreaterThan(inv.TotalAmount) {
			return nil, ierr.NewError("amount paid is out of range").
				WithHint("Amount paid cannot exceed the invoice total").
				Mark(ierr.ErrConflict)
		}

		updated := copyInvoice(inv)
		updated.Version = existing.Version + 1
		return updated, nil
	})
	if err != nil {
		return err
	}

	inv.Version++
	return nil
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Modify(ctx, id, func(existing *invoice.Invoice) (*invoice.Invoice, error) {
		if !s.visible(ctx, existing) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		deleted := copyInvoice(existing)
		deleted.Status = types.StatusDeleted
		deleted.UpdatedAt = time.Now().UTC()
		deleted.UpdatedBy = types.GetUserID(ctx)
		return deleted, nil
	})
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(invoices, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) GetNextInvoiceNumber(ctx context.Context, invoiceType types.InvoiceType, year int) (string, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	prefix := invoiceType.NumberPrefix()
	key := fmt.Sprintf("%s:%s:%d", types.GetTenantID(ctx), prefix, year)
	s.sequences[key]++

	return fmt.Sprintf("%s-%04d-%06d", prefix, year, s.sequences[key]), nil
}

func (s *InMemoryInvoiceStore) GetStats(ctx context.Context) (*invoice.Stats, error) {
	invoices, err := s.InMemoryStore.List(ctx, types.NewNoLimitInvoiceFilter(), invoiceFilterFn, nil)
	if err != nil {
		return nil, err
	}

	stats := &invoice.Stats{TotalRevenue: decimal.Zero}
	for _, inv := range invoices {
		stats.TotalInvoices++
		if inv.InvoiceStatus.IsOutstanding() {
			stats.PendingInvoices++
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(inv.AmountPaid)
	}
	return stats, nil
}

// Clear clears the invoice store and its number sequences
func (s *InMemoryInvoiceStore) Clear() {
	s.InMemoryStore.Clear()

	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.sequences = make(map[string]int64)
}

func (s *InMemoryInvoiceStore) visible(ctx context.Context, inv *invoice.Invoice) bool {
	return inv != nil && inv.Status == types.StatusPublished && CheckTenantFilter(ctx, inv.TenantID)
}

// invoiceFilterFn implements filtering logic for invoices
func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	if inv == nil || inv.Status != types.StatusPublished {
		return false
	}

	if !CheckTenantFilter(ctx, inv.TenantID) {
		return false
	}

	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}

	if len(f.InvoiceIDs) > 0 && !lo.Contains(f.InvoiceIDs, inv.ID) {
		return false
	}

	if f.CaseID != "" && inv.CaseID != f.CaseID {
		return false
	}

	if f.InvoiceType != "" && inv.InvoiceType != f.InvoiceType {
		return false
	}

	if len(f.InvoiceStatus) > 0 && !lo.Contains(f.InvoiceStatus, inv.InvoiceStatus) {
		return false
	}

	if len(f.InvoiceNumbers) > 0 && !lo.Contains(f.InvoiceNumbers, inv.InvoiceNumber) {
		return false
	}

	return true
}

// invoiceSortFn sorts invoices by creation date descending
func invoiceSortFn(i, j *invoice.Invoice) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID > j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}
