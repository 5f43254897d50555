package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"cryptolend-backend/internal/usecase/ledger"
)

type LedgerHandler struct{ uc *ledger.Usecase }

func NewLedgerHandler(uc *ledger.Usecase) *LedgerHandler { return &LedgerHandler{uc: uc} }

func (h *LedgerHandler) GetBalance(c echo.Context) error {
	accountID := c.Param("account_id")
	if !reHex32.MatchString(accountID) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid account_id"})
	}
	asOf, err := parseTimeParam(c, "as_of")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	dto, err := h.uc.Balance(c.Request().Context(), accountID, asOf)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LedgerHandler) GetPortfolio(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("account_ids"))
	if raw == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing account_ids query param"})
	}
	ids := strings.Split(raw, ",")
	for _, id := range ids {
		if !reHex32.MatchString(id) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid account id " + id})
		}
	}
	asOf, err := parseTimeParam(c, "as_of")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	dto, err := h.uc.Portfolio(c.Request().Context(), ids, asOf)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
