package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cryptolend-backend/internal/usecase/withdrawal"
	"cryptolend-backend/pkg/paging"
)

type WithdrawalHandler struct{ uc *withdrawal.Usecase }

func NewWithdrawalHandler(uc *withdrawal.Usecase) *WithdrawalHandler {
	return &WithdrawalHandler{uc: uc}
}

type requestWithdrawalReq struct {
	BeneficiaryID string `json:"beneficiary_id" validate:"required,hex32"`
	AccountID     string `json:"account_id"     validate:"required,hex32"`
	BlockchainKey string `json:"blockchain_key" validate:"required"`
	TokenID       string `json:"token_id"       validate:"required"`
	RequestAmount string `json:"request_amount" validate:"required,intstr"`
}

func (h *WithdrawalHandler) RequestWithdrawal(c echo.Context) error {
	var req requestWithdrawalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	amount, _ := parseAmount(req.RequestAmount)
	dto, err := h.uc.Request(c.Request().Context(), withdrawal.RequestInput{
		UserID:        userID(c),
		BeneficiaryID: req.BeneficiaryID,
		AccountID:     req.AccountID,
		BlockchainKey: req.BlockchainKey,
		TokenID:       req.TokenID,
		RequestAmount: amount,
		AsOf:          time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type markSentReq struct {
	SentAmount string `json:"sent_amount" validate:"required,intstr"`
	SentHash   string `json:"sent_hash"   validate:"required"`
}

func (h *WithdrawalHandler) MarkSent(c echo.Context) error {
	wid := c.Param("withdrawal_id")
	if wid == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing withdrawal_id path param"})
	}
	var req markSentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	amount, _ := parseAmount(req.SentAmount)
	dto, err := h.uc.MarkSent(c.Request().Context(), wid, amount, req.SentHash, time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *WithdrawalHandler) Confirm(c echo.Context) error {
	wid := c.Param("withdrawal_id")
	if wid == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing withdrawal_id path param"})
	}
	dto, err := h.uc.Confirm(c.Request().Context(), wid, time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type failWithdrawalReq struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *WithdrawalHandler) Fail(c echo.Context) error {
	wid := c.Param("withdrawal_id")
	if wid == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing withdrawal_id path param"})
	}
	var req failWithdrawalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	dto, err := h.uc.Fail(c.Request().Context(), wid, req.Reason, time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *WithdrawalHandler) RequestRefund(c echo.Context) error {
	wid := c.Param("withdrawal_id")
	if wid == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing withdrawal_id path param"})
	}
	dto, err := h.uc.RequestRefund(c.Request().Context(), wid, userID(c), time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type refundDecisionReq struct {
	Reason string `json:"reason,omitempty"`
}

func (h *WithdrawalHandler) ApproveRefund(c echo.Context) error {
	wid := c.Param("withdrawal_id")
	if wid == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing withdrawal_id path param"})
	}
	dto, err := h.uc.ApproveRefund(c.Request().Context(), withdrawal.RefundDecisionInput{
		WithdrawalID:   wid,
		ReviewerUserID: userID(c),
		AsOf:           time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *WithdrawalHandler) RejectRefund(c echo.Context) error {
	wid := c.Param("withdrawal_id")
	if wid == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing withdrawal_id path param"})
	}
	var req refundDecisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	dto, err := h.uc.RejectRefund(c.Request().Context(), withdrawal.RefundDecisionInput{
		WithdrawalID:   wid,
		ReviewerUserID: userID(c),
		Reason:         req.Reason,
		AsOf:           time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *WithdrawalHandler) GetWithdrawal(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("withdrawal_id"), time.Now().UTC())
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *WithdrawalHandler) ListWithdrawals(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), withdrawal.ListInput{
		UserID: c.QueryParam("user_id"),
		Status: c.QueryParam("status"),
		Page:   atoiDefault(c.QueryParam("page"), 1),
		Limit:  atoiDefault(c.QueryParam("limit"), paging.DefaultLimit),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
