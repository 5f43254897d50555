package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	domainApp "cryptolend-backend/internal/domain/application"
	"cryptolend-backend/internal/usecase/application"
	"cryptolend-backend/pkg/paging"
)

type ApplicationHandler struct{ uc *application.Usecase }

func NewApplicationHandler(uc *application.Usecase) *ApplicationHandler {
	return &ApplicationHandler{uc: uc}
}

type createApplicationReq struct {
	LoanOfferID       *string `json:"loan_offer_id,omitempty"       validate:"omitempty,hex32"`
	BlockchainKey     string  `json:"blockchain_key"                validate:"required"`
	PrincipalTokenID  string  `json:"principal_token_id"            validate:"required"`
	CollateralTokenID string  `json:"collateral_token_id"           validate:"required"`
	PrincipalAmount   string  `json:"principal_amount"              validate:"required,intstr"`
	MaxInterestRate   string  `json:"max_interest_rate"             validate:"required,decstr"`
	TermInMonths      int     `json:"term_in_months"                validate:"required,gte=1,lte=60"`
	LiquidationMode   string  `json:"liquidation_mode"              validate:"required,oneof=Partial Full"`
	ExpirationDate    string  `json:"expiration_date"               validate:"required"`
}

func (h *ApplicationHandler) CreateApplication(c echo.Context) error {
	var req createApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	principal, _ := parseAmount(req.PrincipalAmount)
	maxRate, err := decimal.NewFromString(req.MaxInterestRate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid max_interest_rate"})
	}
	expiration, err := time.Parse(time.RFC3339, req.ExpirationDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "expiration_date must be RFC3339"})
	}

	dto, err := h.uc.Create(c.Request().Context(), application.CreateApplicationInput{
		BorrowerUserID:    userID(c),
		LoanOfferID:       req.LoanOfferID,
		BlockchainKey:     req.BlockchainKey,
		PrincipalTokenID:  req.PrincipalTokenID,
		CollateralTokenID: req.CollateralTokenID,
		PrincipalAmount:   principal,
		MaxInterestRate:   maxRate,
		TermInMonths:      req.TermInMonths,
		LiquidationMode:   domainApp.LiquidationMode(req.LiquidationMode),
		ExpirationDate:    expiration.UTC(),
		AppliedDate:       time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type updateApplicationReq struct {
	Action         string `json:"action"                    validate:"required,oneof=cancel modify"`
	ClosureReason  string `json:"closure_reason,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

func (h *ApplicationHandler) UpdateApplication(c echo.Context) error {
	appID := c.Param("loan_application_id")
	if appID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_application_id path param"})
	}
	var req updateApplicationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	var expiration time.Time
	if req.ExpirationDate != "" {
		t, err := time.Parse(time.RFC3339, req.ExpirationDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "expiration_date must be RFC3339"})
		}
		expiration = t.UTC()
	}

	dto, err := h.uc.Update(c.Request().Context(), application.UpdateApplicationInput{
		LoanApplicationID: appID,
		BorrowerUserID:    userID(c),
		Action:            domainApp.Action(req.Action),
		ClosureReason:     req.ClosureReason,
		ExpirationDate:    expiration,
		AsOf:              time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) ListApplications(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), application.ListInput{
		Status: c.QueryParam("status"),
		Page:   atoiDefault(c.QueryParam("page"), 1),
		Limit:  atoiDefault(c.QueryParam("limit"), paging.DefaultLimit),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
