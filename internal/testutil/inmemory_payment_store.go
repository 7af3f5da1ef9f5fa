package testutil

import (
	"context"
	"time"

	"github.com/lexledger/lexledger/internal/domain/payment"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

// NewInMemoryPaymentStore creates a new in-memory payment store
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || p.Status != types.StatusPublished || !CheckTenantFilter(ctx, p.TenantID) {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment %s was not found", id).
			WithReportableDetails(map[string]any{
				"payment_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Modify(ctx, id, func(existing *payment.Payment) (*payment.Payment, error) {
		if existing.Status != types.StatusPublished || !CheckTenantFilter(ctx, existing.TenantID) {
			return nil, ierr.NewError("payment not found").
				WithHintf("Payment %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		deleted := copyPayment(existing)
		deleted.Status = types.StatusDeleted
		deleted.UpdatedAt = time.Now().UTC()
		deleted.UpdatedBy = types.GetUserID(ctx)
		return deleted, nil
	})
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	payments, err := s.InMemoryStore.List(ctx, filter, paymentFilterFn, paymentSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(payments, func(p *payment.Payment, _ int) *payment.Payment {
		return copyPayment(p)
	}), nil
}

func (s *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, paymentFilterFn)
}

func (s *InMemoryPaymentStore) SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	filter := types.NewNoLimitPaymentFilter()
	filter.InvoiceID = invoiceID

	payments, err := s.InMemoryStore.List(ctx, filter, paymentFilterFn, nil)
	if err != nil {
		return decimal.Zero, err
	}

	return lo.Reduce(payments, func(acc decimal.Decimal, p *payment.Payment, _ int) decimal.Decimal {
		return acc.Add(p.Amount)
	}, decimal.Zero), nil
}

func paymentFilterFn(ctx context.Context, p *payment.Payment, filter interface{}) bool {
	if p == nil || p.Status != types.StatusPublished {
		return false
	}

	if !CheckTenantFilter(ctx, p.TenantID) {
		return false
	}

	f, ok := filter.(*types.PaymentFilter)
	if !ok || f == nil {
		return true
	}

	if len(f.PaymentIDs) > 0 && !lo.Contains(f.PaymentIDs, p.ID) {
		return false
	}

	if f.InvoiceID != "" && p.InvoiceID != f.InvoiceID {
		return false
	}

	if f.CaseID != "" && p.CaseID != f.CaseID {
		return false
	}

	return true
}

// paymentSortFn orders payments by payment date ascending, oldest first
func paymentSortFn(i, j *payment.Payment) bool {
	if !i.PaymentDate.Equal(j.PaymentDate) {
		return i.PaymentDate.Before(j.PaymentDate)
	}
	if !i.CreatedAt.Equal(j.CreatedAt) {
		return i.CreatedAt.Before(j.CreatedAt)
	}
	return i.ID < j.ID
}
