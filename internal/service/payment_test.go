package service

import (
	"sync"
	"testing"

	"github.com/lexledger/lexledger/internal/api/dto"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/testutil"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        PaymentService
	invoiceService InvoiceService
	testData       struct {
		legalCase *legalcase.Case
		invoice   *dto.InvoiceResponse
	}
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
	s.setupTestData()
}

func (s *PaymentServiceSuite) TearDownTest() {
	s.BaseServiceTestSuite.TearDownTest()
}

func (s *PaymentServiceSuite) setupService() {
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewPaymentService(params)
	s.invoiceService = NewInvoiceService(params)
}

func (s *PaymentServiceSuite) setupTestData() {
	s.testData.legalCase = s.CreateCase("2024-COM-017")

	// 1000 at 5% VAT, total 1050.00
	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:      s.testData.legalCase.ID,
		InvoiceType: types.InvoiceTypeFees,
		Amount:      decimal.NewFromInt(1000),
	})
	s.Require().NoError(err)
	s.Require().Equal("1050.00", inv.TotalAmount)
	s.testData.invoice = inv
}

func (s *PaymentServiceSuite) addPayment(amount string) (*dto.AddPaymentResponse, error) {
	return s.service.AddPayment(s.GetContext(), s.testData.invoice.ID, dto.CreatePaymentRequest{
		Amount: decimal.RequireFromString(amount),
		Method: types.PaymentMethodCash,
	})
}

func (s *PaymentServiceSuite) TestAddPaymentProgression() {
	resp, err := s.addPayment("500")
	s.NoError(err)
	s.Equal(types.InvoiceStatusPartial, resp.Invoice.InvoiceStatus)
	s.Equal("550.00", resp.Invoice.AmountRemaining)
	s.Equal("500.00", resp.Payment.Amount)
	s.Equal("AED", resp.Payment.Currency)
	s.Equal(s.testData.legalCase.ID, resp.Payment.CaseID)
	s.Regexp(`^RC-`, resp.Payment.ReceiptNumber)

	resp, err = s.addPayment("550")
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp.Invoice.InvoiceStatus)
	s.Equal("0.00", resp.Invoice.AmountRemaining)
	s.Equal("1050.00", resp.Invoice.AmountPaid)
}

func (s *PaymentServiceSuite) TestOverpaymentLeavesStateUnchanged() {
	_, err := s.addPayment("1050")
	s.Require().NoError(err)

	_, err = s.addPayment("1")
	s.Error(err)
	s.True(ierr.IsOverpayment(err))

	inv, err := s.invoiceService.GetInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
	s.Equal("1050.00", inv.AmountPaid)

	payments, err := s.service.ListPayments(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Len(payments.Items, 1)
}

func (s *PaymentServiceSuite) TestOverpaymentByOneCent() {
	_, err := s.addPayment("1050.01")
	s.Error(err)
	s.True(ierr.IsOverpayment(err))

	_, err = s.addPayment("1050.00")
	s.NoError(err)
}

func (s *PaymentServiceSuite) TestAddPaymentValidation() {
	tests := []struct {
		name string
		req  dto.CreatePaymentRequest
	}{
		{
			name: "zero amount",
			req:  dto.CreatePaymentRequest{Amount: decimal.Zero, Method: types.PaymentMethodCash},
		},
		{
			name: "negative amount",
			req:  dto.CreatePaymentRequest{Amount: decimal.NewFromInt(-1), Method: types.PaymentMethodCash},
		},
		{
			name: "three decimals",
			req:  dto.CreatePaymentRequest{Amount: decimal.RequireFromString("1.001"), Method: types.PaymentMethodCash},
		},
		{
			name: "unknown method",
			req:  dto.CreatePaymentRequest{Amount: decimal.NewFromInt(1), Method: types.PaymentMethod("crypto")},
		},
		{
			name: "missing method",
			req:  dto.CreatePaymentRequest{Amount: decimal.NewFromInt(1)},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.AddPayment(s.GetContext(), s.testData.invoice.ID, tt.req)
			s.Error(err)
			s.True(ierr.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func (s *PaymentServiceSuite) TestAddPaymentUnknownInvoice() {
	_, err := s.service.AddPayment(s.GetContext(), "inv_missing", dto.CreatePaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: types.PaymentMethodCheck,
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestAddPaymentToCancelledInvoice() {
	_, err := s.invoiceService.CancelInvoice(s.GetContext(), s.testData.invoice.ID)
	s.Require().NoError(err)

	_, err = s.addPayment("10")
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestConcurrentPaymentsCannotOvershoot() {
	const workers = 2

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		errs      = make([]error, workers)
		succeeded = make([]bool, workers)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := s.addPayment("600")
			errs[i] = err
			succeeded[i] = err == nil
		}(i)
	}
	close(start)
	wg.Wait()

	s.Equal(1, lo.Count(succeeded, true))
	failures := lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	s.Require().Len(failures, 1)
	s.True(ierr.IsOverpayment(failures[0]))

	inv, err := s.invoiceService.GetInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Equal("600.00", inv.AmountPaid)
	s.Equal(types.InvoiceStatusPartial, inv.InvoiceStatus)
}

func (s *PaymentServiceSuite) TestManyConcurrentPaymentsNeverExceedTotal() {
	const workers = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.addPayment("100")
		}()
	}
	wg.Wait()

	inv, err := s.invoiceService.GetInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Equal("1000.00", inv.AmountPaid)

	sum, err := s.GetStores().PaymentRepo.SumByInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(sum.Equal(decimal.NewFromInt(1000)))
	s.Equal(0, s.GetLocker().Len())
}

func (s *PaymentServiceSuite) TestListPaymentsOrdered() {
	first, err := s.addPayment("100")
	s.Require().NoError(err)
	second, err := s.addPayment("200")
	s.Require().NoError(err)
	third, err := s.addPayment("300")
	s.Require().NoError(err)

	resp, err := s.service.ListPayments(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Equal([]string{first.Payment.ID, second.Payment.ID, third.Payment.ID},
		lo.Map(resp.Items, func(p *dto.PaymentResponse, _ int) string { return p.ID }))
	s.Equal(3, resp.Pagination.Total)

	_, err = s.service.ListPayments(s.GetContext(), "inv_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestListCasePayments() {
	_, err := s.addPayment("100")
	s.Require().NoError(err)

	other, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:      s.testData.legalCase.ID,
		InvoiceType: types.InvoiceTypeExpenses,
		Amount:      decimal.NewFromInt(40),
	})
	s.Require().NoError(err)
	_, err = s.service.AddPayment(s.GetContext(), other.ID, dto.CreatePaymentRequest{
		Amount: decimal.NewFromInt(42),
		Method: types.PaymentMethodCreditCard,
	})
	s.Require().NoError(err)

	resp, err := s.service.ListCasePayments(s.GetContext(), s.testData.legalCase.ID)
	s.NoError(err)
	s.Len(resp.Items, 2)

	_, err = s.service.ListCasePayments(s.GetContext(), "case_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestGetPayment() {
	added, err := s.addPayment("100")
	s.Require().NoError(err)

	got, err := s.service.GetPayment(s.GetContext(), added.Payment.ID)
	s.NoError(err)
	s.Equal(added.Payment.ID, got.ID)
	s.Equal(types.PaymentMethodCash, got.Method)

	_, err = s.service.GetPayment(s.GetContext(), "pay_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestRemovePaymentMovesStatusBackward() {
	first, err := s.addPayment("500")
	s.Require().NoError(err)
	second, err := s.addPayment("550")
	s.Require().NoError(err)
	s.Require().Equal(types.InvoiceStatusPaid, second.Invoice.InvoiceStatus)

	inv, err := s.service.RemovePayment(s.GetContext(), second.Payment.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPartial, inv.InvoiceStatus)
	s.Equal("550.00", inv.AmountRemaining)

	inv, err = s.service.RemovePayment(s.GetContext(), first.Payment.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPending, inv.InvoiceStatus)
	s.Equal("0.00", inv.AmountPaid)

	_, err = s.service.RemovePayment(s.GetContext(), first.Payment.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *PaymentServiceSuite) TestRemovePaymentFromCancelledInvoice() {
	added, err := s.addPayment("100")
	s.Require().NoError(err)
	_, err = s.invoiceService.CancelInvoice(s.GetContext(), s.testData.invoice.ID)
	s.Require().NoError(err)

	inv, err := s.service.RemovePayment(s.GetContext(), added.Payment.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, inv.InvoiceStatus)
	s.Equal("0.00", inv.AmountPaid)
}
