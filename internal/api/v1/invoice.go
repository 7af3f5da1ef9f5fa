package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/api/dto"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/service"
	"github.com/lexledger/lexledger/internal/types"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *logger.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceService, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// CreateInvoice godoc
// @Summary Create a new invoice
// @Description Create an invoice against a case. VAT and total are computed; the invoice number is assigned.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice body dto.CreateInvoiceRequest true "Invoice details"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("Invalid request format").Mark(ierr.ErrValidation))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// GetInvoice godoc
// @Summary Get an invoice by ID
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invalid invoice id").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ListInvoices godoc
// @Summary List invoices
// @Description List invoices filtered by case, type and status
// @Tags Invoices
// @Produce json
// @Param filter query types.InvoiceFilter false "Filter"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := types.NewInvoiceFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		h.logger.Errorw("failed to bind query parameters", "error", err)
		c.Error(ierr.WithError(err).WithHint("Invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateInvoice godoc
// @Summary Update an invoice
// @Description Change type, amount, VAT percentage, description or due date. Totals and status are re-derived;
// @Description invoice_status is only accepted as "cancelled" or when it equals the derived status.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param invoice body dto.UpdateInvoiceRequest true "Fields to change"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("Invalid request format").Mark(ierr.ErrValidation))
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// CancelInvoice godoc
// @Summary Cancel an invoice
// @Description Cancel a pending or partially paid invoice. Paid invoices cannot be cancelled.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// DeleteInvoice godoc
// @Summary Delete an invoice
// @Description Delete an invoice without payments. Its invoice number is not reused.
// @Tags Invoices
// @Param id path string true "Invoice ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
