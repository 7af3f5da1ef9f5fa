package service

import (
	"testing"

	"github.com/lexledger/lexledger/internal/api/dto"
	"github.com/lexledger/lexledger/internal/domain/invoice"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/testutil"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SummaryServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        SummaryService
	invoiceService InvoiceService
	paymentService PaymentService
	testData       struct {
		legalCase *legalcase.Case
	}
}

func TestSummaryService(t *testing.T) {
	suite.Run(t, new(SummaryServiceSuite))
}

func (s *SummaryServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewSummaryService(params)
	s.invoiceService = NewInvoiceService(params)
	s.paymentService = NewPaymentService(params)
	s.testData.legalCase = s.CreateCase("2024-FAM-003")
}

func (s *SummaryServiceSuite) createInvoice(caseID, amount string) *dto.InvoiceResponse {
	resp, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:      caseID,
		InvoiceType: types.InvoiceTypeFees,
		Amount:      decimal.RequireFromString(amount),
	})
	s.Require().NoError(err)
	return resp
}

func (s *SummaryServiceSuite) pay(invoiceID, amount string) {
	_, err := s.paymentService.AddPayment(s.GetContext(), invoiceID, dto.CreatePaymentRequest{
		Amount: decimal.RequireFromString(amount),
		Method: types.PaymentMethodBankTransfer,
	})
	s.Require().NoError(err)
}

func (s *SummaryServiceSuite) TestCaseInvoiceSummary() {
	caseID := s.testData.legalCase.ID

	a := s.createInvoice(caseID, "1000") // 1050.00
	b := s.createInvoice(caseID, "200")  // 210.00
	c := s.createInvoice(caseID, "100")  // 105.00, cancelled after a partial payment
	s.pay(a.ID, "500")
	s.pay(b.ID, "210")
	s.pay(c.ID, "5")
	_, err := s.invoiceService.CancelInvoice(s.GetContext(), c.ID)
	s.Require().NoError(err)

	resp, err := s.service.CaseInvoiceSummary(s.GetContext(), caseID)
	s.NoError(err)
	s.Len(resp.Invoices, 3)
	s.Equal("1260.00", resp.TotalBilled)
	s.Equal("715.00", resp.TotalPaid)
	s.Equal("550.00", resp.TotalRemaining)
	s.Equal("AED", resp.Currency)
}

func (s *SummaryServiceSuite) TestCaseInvoiceSummaryEmptyAndMissing() {
	resp, err := s.service.CaseInvoiceSummary(s.GetContext(), s.testData.legalCase.ID)
	s.NoError(err)
	s.Empty(resp.Invoices)
	s.Equal("0.00", resp.TotalBilled)
	s.Equal("0.00", resp.TotalPaid)
	s.Equal("0.00", resp.TotalRemaining)

	_, err = s.service.CaseInvoiceSummary(s.GetContext(), "case_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *SummaryServiceSuite) TestTenantStatsCountsCollectedRevenue() {
	s.CreateCase("2024-CIV-045")
	s.Require().NoError(s.GetStores().CaseRepo.(*testutil.InMemoryCaseStore).AddCase(s.GetContext(), &legalcase.Case{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CASE),
		CaseNumber: "2023-CIV-044",
		Title:      "Closed matter",
		CaseStatus: types.CaseStatusClosed,
		BaseModel:  types.GetDefaultBaseModel(s.GetContext()),
	}))

	s.createInvoice(s.testData.legalCase.ID, "1000")           // 1050.00 unpaid
	partial := s.createInvoice(s.testData.legalCase.ID, "200") // 210.00
	paid := s.createInvoice(s.testData.legalCase.ID, "100")    // 105.00
	cancelled := s.createInvoice(s.testData.legalCase.ID, "50")
	s.pay(partial.ID, "10")
	s.pay(paid.ID, "105")
	_, err := s.invoiceService.CancelInvoice(s.GetContext(), cancelled.ID)
	s.Require().NoError(err)

	stats, err := s.service.TenantStats(s.GetContext())
	s.NoError(err)
	s.Equal(3, stats.TotalCases)
	s.Equal(2, stats.ActiveCases)
	s.Equal(4, stats.TotalInvoices)
	s.Equal(2, stats.PendingInvoicesCount)
	s.Equal("115.00", stats.TotalRevenue)
}

func (s *SummaryServiceSuite) TestTenantStatsIsTenantScoped() {
	s.pay(s.createInvoice(s.testData.legalCase.ID, "100").ID, "50")

	stats, err := s.service.TenantStats(types.SetTenantID(s.GetContext(), "tenant_other"))
	s.NoError(err)
	s.Equal(0, stats.TotalCases)
	s.Equal(0, stats.TotalInvoices)
	s.Equal("0.00", stats.TotalRevenue)
}

func TestSummarizeInvoices(t *testing.T) {
	inv := func(total, paid string, status types.InvoiceStatus) *invoice.Invoice {
		return &invoice.Invoice{
			TotalAmount:   decimal.RequireFromString(total),
			AmountPaid:    decimal.RequireFromString(paid),
			InvoiceStatus: status,
		}
	}

	summary := SummarizeInvoices([]*invoice.Invoice{
		inv("100.00", "0", types.InvoiceStatusPending),
		inv("33.33", "33.33", types.InvoiceStatusPaid),
		inv("10.10", "5.05", types.InvoiceStatusPartial),
		inv("999.99", "1.00", types.InvoiceStatusCancelled),
	})

	assert.Equal(t, "143.43", summary.TotalBilled.StringFixed(2))
	assert.Equal(t, "39.38", summary.TotalPaid.StringFixed(2))
	assert.Equal(t, "105.05", summary.TotalRemaining.StringFixed(2))
}
