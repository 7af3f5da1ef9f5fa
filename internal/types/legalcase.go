package types

// CaseStatus is the lifecycle state a case carries in the case registry
type CaseStatus string

const (
	CaseStatusActive   CaseStatus = "active"
	CaseStatusClosed   CaseStatus = "closed"
	CaseStatusArchived CaseStatus = "archived"
)

// CaseFilter selects cases for counting; an empty status matches every case
type CaseFilter struct {
	CaseStatus CaseStatus `form:"case_status"`
}
