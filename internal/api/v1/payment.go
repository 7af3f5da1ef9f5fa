package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexledger/lexledger/internal/api/dto"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/lexledger/lexledger/internal/logger"
	"github.com/lexledger/lexledger/internal/service"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

// @Summary Record a payment
// @Description Record a payment against an invoice. Rejected when it would exceed the remaining balance.
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payment body dto.CreatePaymentRequest true "Payment"
// @Success 201 {object} dto.AddPaymentResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /invoices/{id}/payments [post]
func (h *PaymentHandler) AddPayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.AddPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List an invoice's payments
// @Description Payments ordered by payment date, oldest first
// @Tags Payments
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /invoices/{id}/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	resp, err := h.service.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List a case's payments
// @Tags Payments
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /cases/{id}/payments [get]
func (h *PaymentHandler) ListCasePayments(c *gin.Context) {
	resp, err := h.service.ListCasePayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get a payment by ID
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Remove a payment
// @Description Reverse a payment. The invoice status is re-derived and may move backward.
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /payments/{id} [delete]
func (h *PaymentHandler) RemovePayment(c *gin.Context) {
	resp, err := h.service.RemovePayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
