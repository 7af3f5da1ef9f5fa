package service

import (
	"testing"
	"time"

	"github.com/lexledger/lexledger/internal/api/dto"
	"github.com/lexledger/lexledger/internal/domain/legalcase"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/testutil"
	"github.com/lexledger/lexledger/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        InvoiceService
	paymentService PaymentService
	testData       struct {
		legalCase *legalcase.Case
	}
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewInvoiceService(params)
	s.paymentService = NewPaymentService(params)
	s.testData.legalCase = s.CreateCase("2024-CIV-001")
}

func (s *InvoiceServiceSuite) createInvoice(amount string) *dto.InvoiceResponse {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:      s.testData.legalCase.ID,
		InvoiceType: types.InvoiceTypeFees,
		Amount:      decimal.RequireFromString(amount),
	})
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) pay(invoiceID, amount string) *dto.AddPaymentResponse {
	resp, err := s.paymentService.AddPayment(s.GetContext(), invoiceID, dto.CreatePaymentRequest{
		Amount: decimal.RequireFromString(amount),
		Method: types.PaymentMethodBankTransfer,
	})
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp := s.createInvoice("1000")

	s.Equal("1000.00", resp.Amount)
	s.Equal("5", resp.VATPercentage)
	s.Equal("50.00", resp.VATAmount)
	s.Equal("1050.00", resp.TotalAmount)
	s.Equal("0.00", resp.AmountPaid)
	s.Equal("1050.00", resp.AmountRemaining)
	s.Equal(types.InvoiceStatusPending, resp.InvoiceStatus)
	s.Equal("AED", resp.Currency)
	s.Equal(types.DefaultTenantID, resp.TenantID)
	s.Regexp(`^FEES-\d{4}-000001$`, resp.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceExplicitRate() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:        s.testData.legalCase.ID,
		InvoiceType:   types.InvoiceTypeExpenses,
		Amount:        decimal.RequireFromString("200.10"),
		VATPercentage: lo.ToPtr(decimal.Zero),
		Description:   "Court filing fees",
	})
	s.Require().NoError(err)

	s.Equal("0.00", resp.VATAmount)
	s.Equal("200.10", resp.TotalAmount)
	s.Equal("Court filing fees", resp.Description)
	s.Regexp(`^EXP-\d{4}-000001$`, resp.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceValidation() {
	tests := []struct {
		name string
		req  dto.CreateInvoiceRequest
	}{
		{
			name: "zero amount",
			req: dto.CreateInvoiceRequest{
				CaseID:      s.testData.legalCase.ID,
				InvoiceType: types.InvoiceTypeFees,
				Amount:      decimal.Zero,
			},
		},
		{
			name: "negative amount",
			req: dto.CreateInvoiceRequest{
				CaseID:      s.testData.legalCase.ID,
				InvoiceType: types.InvoiceTypeFees,
				Amount:      decimal.NewFromInt(-10),
			},
		},
		{
			name: "too many decimals",
			req: dto.CreateInvoiceRequest{
				CaseID:      s.testData.legalCase.ID,
				InvoiceType: types.InvoiceTypeFees,
				Amount:      decimal.RequireFromString("10.005"),
			},
		},
		{
			name: "missing case",
			req: dto.CreateInvoiceRequest{
				InvoiceType: types.InvoiceTypeFees,
				Amount:      decimal.NewFromInt(10),
			},
		},
		{
			name: "unknown type",
			req: dto.CreateInvoiceRequest{
				CaseID:      s.testData.legalCase.ID,
				InvoiceType: types.InvoiceType("retainer"),
				Amount:      decimal.NewFromInt(10),
			},
		},
		{
			name: "negative rate",
			req: dto.CreateInvoiceRequest{
				CaseID:        s.testData.legalCase.ID,
				InvoiceType:   types.InvoiceTypeFees,
				Amount:        decimal.NewFromInt(10),
				VATPercentage: lo.ToPtr(decimal.NewFromInt(-1)),
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateInvoice(s.GetContext(), tt.req)
			s.Error(err)
			s.True(ierr.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoiceUnknownCase() {
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:      "case_missing",
		InvoiceType: types.InvoiceTypeFees,
		Amount:      decimal.NewFromInt(100),
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestInvoiceNumbersIncrease() {
	first := s.createInvoice("100")
	second := s.createInvoice("100")

	s.NoError(s.service.DeleteInvoice(s.GetContext(), second.ID))

	third := s.createInvoice("100")

	s.Regexp(`-000001$`, first.InvoiceNumber)
	s.Regexp(`-000002$`, second.InvoiceNumber)
	s.Regexp(`-000003$`, third.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestGetInvoice() {
	created := s.createInvoice("100")

	got, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal(created.InvoiceNumber, got.InvoiceNumber)

	_, err = s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	s.createInvoice("100")
	s.createInvoice("200")
	paid := s.createInvoice("300")
	s.pay(paid.ID, "315")

	other := s.CreateCase("2024-CIV-002")
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:      other.ID,
		InvoiceType: types.InvoiceTypeFees,
		Amount:      decimal.NewFromInt(50),
	})
	s.Require().NoError(err)

	filter := types.NewInvoiceFilter()
	filter.CaseID = s.testData.legalCase.ID
	resp, err := s.service.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Len(resp.Items, 3)
	s.Equal(3, resp.Pagination.Total)

	filter.InvoiceStatus = []types.InvoiceStatus{types.InvoiceStatusPaid}
	resp, err = s.service.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Len(resp.Items, 1)
	s.Equal(paid.ID, resp.Items[0].ID)

	limited := types.NewInvoiceFilter()
	limited.Limit = lo.ToPtr(2)
	resp, err = s.service.ListInvoices(s.GetContext(), limited)
	s.NoError(err)
	s.Len(resp.Items, 2)
	s.Equal(4, resp.Pagination.Total)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceRecomputesTotals() {
	created := s.createInvoice("1000")

	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Amount:        lo.ToPtr(decimal.NewFromInt(2000)),
		VATPercentage: lo.ToPtr(decimal.NewFromInt(10)),
		Description:   lo.ToPtr("Hearing preparation"),
	})
	s.NoError(err)
	s.Equal("2000.00", resp.Amount)
	s.Equal("200.00", resp.VATAmount)
	s.Equal("2200.00", resp.TotalAmount)
	s.Equal("Hearing preparation", resp.Description)
	s.Equal(created.InvoiceNumber, resp.InvoiceNumber)
	s.Equal(created.Version+1, resp.Version)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceBelowPaidIsConflict() {
	created := s.createInvoice("1000")
	s.pay(created.ID, "500")

	_, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(400)),
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))

	got, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal("1000.00", got.Amount)
	s.Equal("500.00", got.AmountPaid)
	s.Equal(types.InvoiceStatusPartial, got.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceRederivesStatus() {
	created := s.createInvoice("1000")
	s.pay(created.ID, "1050")

	// raising the amount reopens the balance
	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(1100)),
	})
	s.NoError(err)
	s.Equal("1155.00", resp.TotalAmount)
	s.Equal(types.InvoiceStatusPartial, resp.InvoiceStatus)
	s.Equal("105.00", resp.AmountRemaining)

	// dropping VAT makes it exactly paid again
	resp, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Amount:        lo.ToPtr(decimal.NewFromInt(1050)),
		VATPercentage: lo.ToPtr(decimal.Zero),
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
	s.Equal("0.00", resp.AmountRemaining)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceStatus() {
	created := s.createInvoice("1000")

	// matching the derived status is accepted
	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusPending),
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusPending, resp.InvoiceStatus)

	// contradicting it is not
	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusPaid),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// cancelled is taken as the cancellation action
	resp, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusCancelled),
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, resp.InvoiceStatus)
	s.NotNil(resp.CancelledAt)

	// and cannot be left again
	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusPending),
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))

	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(10)),
	})
	s.True(ierr.IsConflict(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceValidation() {
	created := s.createInvoice("1000")

	_, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(-5)),
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		VATPercentage: lo.ToPtr(decimal.NewFromInt(-5)),
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.UpdateInvoice(s.GetContext(), "inv_missing", dto.UpdateInvoiceRequest{
		Description: lo.ToPtr("x"),
	})
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestCancelInvoice() {
	pending := s.createInvoice("100")
	partial := s.createInvoice("100")
	paid := s.createInvoice("100")
	s.pay(partial.ID, "10")
	s.pay(paid.ID, "105")

	resp, err := s.service.CancelInvoice(s.GetContext(), pending.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, resp.InvoiceStatus)

	resp, err = s.service.CancelInvoice(s.GetContext(), partial.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, resp.InvoiceStatus)
	s.Equal("10.00", resp.AmountPaid)

	_, err = s.service.CancelInvoice(s.GetContext(), paid.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))

	// cancelling twice is harmless
	resp, err = s.service.CancelInvoice(s.GetContext(), pending.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, resp.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestDeleteInvoice() {
	created := s.createInvoice("100")

	s.NoError(s.service.DeleteInvoice(s.GetContext(), created.ID))

	_, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))

	err = s.service.DeleteInvoice(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestDeleteInvoiceWithPaymentsIsConflict() {
	created := s.createInvoice("100")
	added := s.pay(created.ID, "50")

	err := s.service.DeleteInvoice(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))

	_, err = s.paymentService.RemovePayment(s.GetContext(), added.Payment.ID)
	s.NoError(err)
	s.NoError(s.service.DeleteInvoice(s.GetContext(), created.ID))
}

func (s *InvoiceServiceSuite) TestTenantIsolation() {
	created := s.createInvoice("100")

	otherCtx := types.SetTenantID(s.GetContext(), "tenant_other")
	_, err := s.service.GetInvoice(otherCtx, created.ID)
	s.True(ierr.IsNotFound(err))

	resp, err := s.service.ListInvoices(otherCtx, nil)
	s.NoError(err)
	s.Empty(resp.Items)
}

func (s *InvoiceServiceSuite) TestDueDateRoundTrip() {
	due := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CaseID:      s.testData.legalCase.ID,
		InvoiceType: types.InvoiceTypeCreditNote,
		Amount:      decimal.NewFromInt(100),
		DueDate:     &due,
	})
	s.Require().NoError(err)
	s.Require().NotNil(resp.DueDate)
	s.True(due.Equal(*resp.DueDate))
	s.Regexp(`^CN-`, resp.InvoiceNumber)
}
