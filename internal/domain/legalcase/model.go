// Package legalcase is the ledger's read-only view of the case registry.
// Cases are owned elsewhere; the ledger only resolves and counts them.
package legalcase

import (
	"github.com/lexledger/lexledger/internal/types"
)

// Case is a legal matter that invoices are billed against
type Case struct {
	ID         string           `db:"id" json:"id"`
	CaseNumber string           `db:"case_number" json:"case_number"`
	Title      string           `db:"title" json:"title"`
	CaseStatus types.CaseStatus `db:"case_status" json:"case_status"`

	types.BaseModel
}
