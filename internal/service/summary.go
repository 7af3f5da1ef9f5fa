package service

import (
	"context"

	"github.com/lexledger/lexledger/internal/api/dto"
	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/money"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// SummaryService folds invoices into the totals shown on case and dashboard screens
type SummaryService interface {
	CaseInvoiceSummary(ctx context.Context, caseID string) (*dto.CaseInvoiceSummaryResponse, error)
	TenantStats(ctx context.Context) (*dto.TenantStatsResponse, error)
}

type summaryService struct {
	ServiceParams
}

func NewSummaryService(params ServiceParams) SummaryService {
	return &summaryService{
		ServiceParams: params,
	}
}

// CaseSummary is the fold of a case's invoices
type CaseSummary struct {
	TotalBilled    decimal.Decimal
	TotalPaid      decimal.Decimal
	TotalRemaining decimal.Decimal
}

// SummarizeInvoices computes billed, paid and remaining totals. Cancelled invoices bill nothing and
// owe nothing, but money already collected on them still counts as paid.
func SummarizeInvoices(invoices []*invoice.Invoice) CaseSummary {
	summary := CaseSummary{
		TotalBilled:    decimal.Zero,
		TotalPaid:      decimal.Zero,
		TotalRemaining: decimal.Zero,
	}

	for _, inv := range invoices {
		summary.TotalPaid = summary.TotalPaid.Add(inv.AmountPaid)
		if inv.IsCancelled() {
			continue
		}
		summary.TotalBilled = summary.TotalBilled.Add(inv.TotalAmount)
		summary.TotalRemaining = summary.TotalRemaining.Add(inv.AmountRemaining())
	}

	summary.TotalBilled = money.Round(summary.TotalBilled)
	summary.TotalPaid = money.Round(summary.TotalPaid)
	summary.TotalRemaining = money.Round(summary.TotalRemaining)
	return summary
}

func (s *summaryService) CaseInvoiceSummary(ctx context.Context, caseID string) (*dto.CaseInvoiceSummaryResponse, error) {
	if caseID == "" {
		return nil, ierr.NewError("case_id is required").
			WithHint("Case ID is required").
			Mark(ierr.ErrValidation)
	}

	if _, err := s.CaseRepo.Get(ctx, caseID); err != nil {
		return nil, err
	}

	filter := types.NewNoLimitInvoiceFilter()
	filter.CaseID = caseID

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := SummarizeInvoices(invoices)

	return &dto.CaseInvoiceSummaryResponse{
		CaseID:   caseID,
		Currency: s.Config.Ledger.Currency,
		Invoices: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
			return dto.NewInvoiceResponse(inv)
		}),
		TotalBilled:    money.Format(summary.TotalBilled),
		TotalPaid:      money.Format(summary.TotalPaid),
		TotalRemaining: money.Format(summary.TotalRemaining),
	}, nil
}

func (s *summaryService) TenantStats(ctx context.Context) (*dto.TenantStatsResponse, error) {
	var (
		totalCases  int
		activeCases int
		stats       *invoice.Stats
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		totalCases, err = s.CaseRepo.Count(ctx, &types.CaseFilter{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		activeCases, err = s.CaseRepo.Count(ctx, &types.CaseFilter{CaseStatus: types.CaseStatusActive})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		stats, err = s.InvoiceRepo.GetStats(ctx)
		return err
	})

	if err := p.Wait(); err != nil {
		s.Logger.Errorw("failed to compute tenant stats",
			"error", err,
			"tenant_id", types.GetTenantID(ctx))
		return nil, err
	}

	return &dto.TenantStatsResponse{
		TotalCases:           totalCases,
		ActiveCases:          activeCases,
		TotalInvoices:        stats.TotalInvoices,
		PendingInvoicesCount: stats.PendingInvoices,
		TotalRevenue:         money.Format(stats.TotalRevenue),
		Currency:             s.Config.Ledger.Currency,
	}, nil
}
