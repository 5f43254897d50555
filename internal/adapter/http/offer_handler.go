package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"cryptolend-backend/internal/usecase/offer"
	"cryptolend-backend/pkg/paging"
)

type OfferHandler struct{ uc *offer.Usecase }

func NewOfferHandler(uc *offer.Usecase) *OfferHandler { return &OfferHandler{uc: uc} }

type createOfferReq struct {
	BlockchainKey          string `json:"blockchain_key"            validate:"required"`
	TokenID                string `json:"token_id"                  validate:"required"`
	OfferedPrincipalAmount string `json:"offered_principal_amount"  validate:"required,intstr"`
	MinLoanPrincipalAmount string `json:"min_loan_principal_amount" validate:"required,intstr"`
	MaxLoanPrincipalAmount string `json:"max_loan_principal_amount" validate:"required,intstr"`
	InterestRate           string `json:"interest_rate"             validate:"required,decstr"`
	TermInMonthsOptions    []int  `json:"term_in_months_options"    validate:"required,min=1,dive,gte=1,lte=60"`
	ExpirationDate         string `json:"expiration_date"           validate:"required"`
}

func (h *OfferHandler) CreateOffer(c echo.Context) error {
	var req createOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}

	offered, _ := parseAmount(req.OfferedPrincipalAmount)
	minAmt, _ := parseAmount(req.MinLoanPrincipalAmount)
	maxAmt, _ := parseAmount(req.MaxLoanPrincipalAmount)
	rate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid interest_rate"})
	}
	expiration, err := time.Parse(time.RFC3339, req.ExpirationDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "expiration_date must be RFC3339"})
	}

	dto, err := h.uc.Create(c.Request().Context(), offer.CreateOfferInput{
		LenderUserID:           userID(c),
		BlockchainKey:          req.BlockchainKey,
		TokenID:                req.TokenID,
		OfferedPrincipalAmount: offered,
		MinLoanPrincipalAmount: minAmt,
		MaxLoanPrincipalAmount: maxAmt,
		InterestRate:           rate,
		TermInMonthsOptions:    req.TermInMonthsOptions,
		ExpirationDate:         expiration.UTC(),
		AsOf:                   time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type closeOfferReq struct {
	ClosureReason string `json:"closure_reason"`
}

func (h *OfferHandler) CloseOffer(c echo.Context) error {
	offerID := c.Param("loan_offer_id")
	if offerID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing loan_offer_id path param"})
	}
	var req closeOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	dto, err := h.uc.Close(c.Request().Context(), offer.CloseOfferInput{
		LoanOfferID:   offerID,
		LenderUserID:  userID(c),
		ClosureReason: req.ClosureReason,
		AsOf:          time.Now().UTC(),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OfferHandler) GetOffer(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_offer_id"))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *OfferHandler) ListOffers(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), offer.ListInput{
		Status: c.QueryParam("status"),
		Page:   atoiDefault(c.QueryParam("page"), 1),
		Limit:  atoiDefault(c.QueryParam("limit"), paging.DefaultLimit),
	})
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
