package dto

// CaseInvoiceSummaryResponse lists a case's invoices with billed and collected totals.
// Cancelled invoices appear in Invoices but are left out of TotalBilled and TotalRemaining.
type CaseInvoiceSummaryResponse struct {
	CaseID         string             `json:"case_id"`
	Currency       string             `json:"currency"`
	Invoices       []*InvoiceResponse `json:"invoices"`
	TotalBilled    string             `json:"total_billed"`
	TotalPaid      string             `json:"total_paid"`
	TotalRemaining string             `json:"total_remaining"`
}

// TenantStatsResponse holds the dashboard figures for a tenant
type TenantStatsResponse struct {
	TotalCases           int    `json:"total_cases"`
	ActiveCases          int    `json:"active_cases"`
	TotalInvoices        int    `json:"total_invoices"`
	PendingInvoicesCount int    `json:"pending_invoices_count"`
	TotalRevenue         string `json:"total_revenue"`
	Currency             string `json:"currency"`
}
