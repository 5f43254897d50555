package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cryptolend-backend/internal/usecase/application"
	"cryptolend-backend/internal/usecase/loan"
	"cryptolend-backend/internal/usecase/offer"
)

// PaymentHandler is the settlement callback surface: the payment
// processor confirms an invoice and the owning aggregate advances.
type PaymentHandler struct {
	offers       *offer.Usecase
	applications *application.Usecase
	loans        *loan.Usecase
}

func NewPaymentHandler(o *offer.Usecase, a *application.Usecase, l *loan.Usecase) *PaymentHandler {
	return &PaymentHandler{offers: o, applications: a, loans: l}
}

type invoicePaidReq struct {
	InvoiceType string `json:"invoice_type" validate:"required,oneof=LoanPrincipal LoanCollateral LoanRepayment LoanEarlyRepayment"`
	AccountID   string `json:"account_id"   validate:"required,hex32"`
	PaidDate    string `json:"paid_date,omitempty"`
}

func (h *PaymentHandler) InvoicePaid(c echo.Context) error {
	invoiceID := c.Param("invoice_id")
	if invoiceID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing invoice_id path param"})
	}
	var req invoicePaidReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	paidAt := time.Now().UTC()
	if req.PaidDate != "" {
		t, err := time.Parse(time.RFC3339, req.PaidDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "paid_date must be RFC3339"})
		}
		paidAt = t.UTC()
	}

	ctx := c.Request().Context()
	var (
		dto any
		err error
	)
	switch req.InvoiceType {
	case "LoanPrincipal":
		dto, err = h.offers.Publish(ctx, invoiceID, req.AccountID, paidAt)
	case "LoanCollateral":
		dto, err = h.applications.Publish(ctx, invoiceID, req.AccountID, paidAt)
	default: // LoanRepayment, LoanEarlyRepayment
		dto, err = h.loans.Settle(ctx, invoiceID, req.AccountID, paidAt)
	}
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// ExpireOffers / ExpireApplications are the sweep hooks a scheduler hits.
func (h *PaymentHandler) ExpireOffers(c echo.Context) error {
	n, err := h.offers.Expire(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"expired": n})
}

func (h *PaymentHandler) ExpireApplications(c echo.Context) error {
	n, err := h.applications.Expire(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"expired": n})
}
