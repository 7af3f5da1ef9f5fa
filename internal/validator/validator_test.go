package validator

import (
	"sync"
	"testing"

	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	CaseID string          `json:"case_id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func TestValidateRequest(t *testing.T) {
	require.NoError(t, ValidateRequest(&sampleRequest{CaseID: "case_1", Amount: decimal.NewFromInt(10)}))

	err := ValidateRequest(&sampleRequest{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Contains(t, err.Error(), "case_id")

	assert.True(t, ierr.IsValidation(ValidateRequest(nil)))
}

func TestNewValidator_SharedInstance(t *testing.T) {
	assert.Same(t, NewValidator(), GetValidator())
}

func TestValidateRequest_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ValidateRequest(&sampleRequest{CaseID: "case_1", Amount: decimal.NewFromInt(int64(i + 1))})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.NotNil(t, GetValidator())
}
