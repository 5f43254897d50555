package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"cryptolend-backend/internal/domain/application"
	"cryptolend-backend/internal/domain/currency"
	"cryptolend-backend/internal/domain/invoice"
	"cryptolend-backend/internal/domain/ledger"
	"cryptolend-backend/internal/domain/loan"
	"cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/internal/domain/platformconfig"
	"cryptolend-backend/internal/domain/rate"
	"cryptolend-backend/internal/domain/withdrawal"
)

// ---- helpers ----

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// errStatus maps domain errors to HTTP codes. Illegal state transitions
// and duplicate-action errors collide (409), missing rows are 404,
// everything else is the caller's fault (400).
func errStatus(err error) int {
	var (
		offerTE *offer.TransitionError
		appTE   *application.TransitionError
		loanTE  *loan.TransitionError
		wdTE    *withdrawal.TransitionError
	)
	switch {
	case errors.As(err, &offerTE), errors.As(err, &appTE),
		errors.As(err, &loanTE), errors.As(err, &wdTE):
		return http.StatusConflict
	case errors.Is(err, loan.ErrDuplicateLiquidation),
		errors.Is(err, loan.ErrNotActive),
		errors.Is(err, withdrawal.ErrRefundDecided),
		errors.Is(err, withdrawal.ErrNotRefundable),
		errors.Is(err, invoice.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, offer.ErrNotFound),
		errors.Is(err, application.ErrNotFound),
		errors.Is(err, loan.ErrNotFound),
		errors.Is(err, withdrawal.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, currency.ErrNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, currency.ErrPairNotFound),
		errors.Is(err, rate.ErrRateNotFound),
		errors.Is(err, platformconfig.ErrConfigNotFound),
		errors.Is(err, application.ErrInvalidAction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeErr(c echo.Context, err error) error {
	return c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
}

// parseAmount converts an integer-string body field into a decimal.
// Validation has already vetted the format; this is the belt.
func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.New("invalid amount")
	}
	return d, nil
}

// userID reads the authenticated caller identity the idempotency layer
// already validated as 32-hex.
func userID(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get("Ax-User-Id"))
}

// parseTimeParam parses an optional RFC3339 query param, defaulting to now.
func parseTimeParam(c echo.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be RFC3339")
	}
	return t.UTC(), nil
}

func atoiDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
