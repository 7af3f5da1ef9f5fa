package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/service"
)

type SummaryHandler struct {
	service service.SummaryService
	log     *logger.Logger
}

func NewSummaryHandler(service service.SummaryService, log *logger.Logger) *SummaryHandler {
	return &SummaryHandler{service: service, log: log}
}

// @Summary Case invoice summary
// @Description A case's invoices with billed, paid and remaining totals. Cancelled invoices are not billed.
// @Tags Summary
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} dto.CaseInvoiceSummaryResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /cases/{id}/invoices [get]
func (h *SummaryHandler) CaseInvoiceSummary(c *gin.Context) {
	resp, err := h.service.CaseInvoiceSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Tenant dashboard figures
// @Description Case counts, outstanding invoice count and collected revenue
// @Tags Summary
// @Produce json
// @Success 200 {object} dto.TenantStatsResponse
// @Router /stats [get]
func (h *SummaryHandler) TenantStats(c *gin.Context) {
	resp, err := h.service.TenantStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
