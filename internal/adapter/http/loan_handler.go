package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domainLoan "cryptolend-backend/internal/domain/loan"
	"cryptolend-backend/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type matchLoanReq struct {
	LoanApplicationID string `json:"loan_application_id" validate:"required,hex32"`
	LoanOfferID       string `json:"loan_offer_id"       validate:"required,hex32"`
}

func (h *LoanHandler) MatchLoan(c echo.Context) error {
	var req matchLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Match(c.Request().Context(), loan.MatchInput{
		LoanApplicationID: req.LoanApplicationID,
		LoanOfferID:       req.LoanOfferID,
		AsOf:              time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type activateLoanReq struct {
	BorrowerAccountID string `json:"borrower_account_id" validate:"required,hex32"`
}

func (h *LoanHandler) ActivateLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	var req activateLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Activate(c.Request().Context(), loanID, req.BorrowerAccountID, time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) RequestRepayment(c echo.Context) error {
	return h.repay(c, false)
}

func (h *LoanHandler) RequestEarlyRepayment(c echo.Context) error {
	return h.repay(c, true)
}

func (h *LoanHandler) repay(c echo.Context, early bool) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	in := loan.RepayInput{
		LoanID:         loanID,
		BorrowerUserID: userID(c),
		Initiator:      domainLoan.InitiatorBorrower,
		AsOf:           time.Now().UTC(),
	}
	var (
		dto *loan.RepaymentDTO
		err error
	)
	if early {
		dto, err = h.uc.EarlyRepay(c.Request().Context(), in)
	} else {
		dto, err = h.uc.Repay(c.Request().Context(), in)
	}
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) EstimateLiquidation(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	dto, err := h.uc.EstimateEarlyLiquidation(c.Request().Context(), loan.EstimateInput{
		LoanID:         loanID,
		BorrowerUserID: userID(c),
		AsOf:           time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type liquidationReq struct {
	MarketProvider string `json:"market_provider" validate:"required"`
	MarketSymbol   string `json:"market_symbol"   validate:"required"`
}

func (h *LoanHandler) RequestLiquidation(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_id path param"})
	}
	var req liquidationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.RequestEarlyLiquidation(c.Request().Context(), loan.LiquidationInput{
		LoanID:         loanID,
		BorrowerUserID: userID(c),
		Initiator:      domainLoan.InitiatorBorrower,
		MarketProvider: req.MarketProvider,
		MarketSymbol:   req.MarketSymbol,
		AsOf:           time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
