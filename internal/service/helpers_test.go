package service

import (
	"github.com/lexledger/lexledger/internal/sentry"
	"github.com/lexledger/lexledger/internal/testutil"
)

func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		sentry.NewSentryService(s.GetConfig(), s.GetLogger()),
		s.GetLocker(),
		s.GetStores().InvoiceRepo,
		s.GetStores().PaymentRepo,
		s.GetStores().CaseRepo,
	)
}
