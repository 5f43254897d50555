package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"cryptolend-backend/internal/adapter/repository/mysql"
	domainCurrency "cryptolend-backend/internal/domain/currency"
	"cryptolend-backend/internal/testutil/dbtest"
	applicationUC "cryptolend-backend/internal/usecase/application"
	loanUC "cryptolend-backend/internal/usecase/loan"
	offerUC "cryptolend-backend/internal/usecase/offer"
	"cryptolend-backend/pkg/id"
)

func newPaymentServer(t *testing.T) (*echo.Echo, *offerUC.Usecase) {
	t.Helper()
	db := dbtest.OpenSQLite(t)
	err := db.Create(&domainCurrency.Currency{
		BlockchainKey:          "bsc",
		TokenID:                "usdc",
		Symbol:                 "USDC",
		Name:                   "USD Coin",
		Decimals:               6,
		MinLoanPrincipalAmount: decimal.NewFromInt(1_000_000_000),
		MaxLoanPrincipalAmount: decimal.NewFromInt(100_000_000_000),
	}).Error
	if err != nil {
		t.Fatalf("seed currency: %v", err)
	}

	u := mysql.NewGormUoW(db)
	offers := offerUC.NewUsecase(u)
	ph := NewPaymentHandler(offers, applicationUC.NewUsecase(u), loanUC.NewUsecase(u))
	e := echo.New()
	e.Validator = NewValidator()
	e.POST("/invoices/:invoice_id/paid", ph.InvoicePaid)
	e.POST("/loan-offers/expire", ph.ExpireOffers)
	return e, offers
}

func TestInvoicePaid_PublishesFundedOffer(t *testing.T) {
	e, offers := newPaymentServer(t)
	asOf := time.Now().UTC()

	created, err := offers.Create(context.Background(), offerUC.CreateOfferInput{
		LenderUserID:           id.NewID32(),
		BlockchainKey:          "bsc",
		TokenID:                "usdc",
		OfferedPrincipalAmount: decimal.NewFromInt(10_000_000_000),
		MinLoanPrincipalAmount: decimal.NewFromInt(1_000_000_000),
		MaxLoanPrincipalAmount: decimal.NewFromInt(5_000_000_000),
		InterestRate:           decimal.RequireFromString("12.5"),
		TermInMonthsOptions:    []int{6},
		ExpirationDate:         asOf.Add(72 * time.Hour),
		AsOf:                   asOf,
	})
	if err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	body := `{"invoice_type":"LoanPrincipal","account_id":"` + id.NewID32() + `"}`
	rec := doJSON(e, http.MethodPost, "/invoices/"+created.FundingInvoice.InvoiceID+"/paid", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s, want 200", rec.Code, rec.Body.String())
	}

	var dto offerUC.OfferDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if dto.Status != "Published" {
		t.Fatalf("status = %s, want Published", dto.Status)
	}

	// the processor retrying the same callback must hit a conflict
	if rec := doJSON(e, http.MethodPost, "/invoices/"+created.FundingInvoice.InvoiceID+"/paid", "", body); rec.Code != http.StatusConflict {
		t.Fatalf("replayed callback = %d, want 409", rec.Code)
	}
}

func TestInvoicePaid_UnknownInvoiceIs404(t *testing.T) {
	e, _ := newPaymentServer(t)

	body := `{"invoice_type":"LoanPrincipal","account_id":"` + id.NewID32() + `"}`
	rec := doJSON(e, http.MethodPost, "/invoices/"+id.NewID32()+"/paid", "", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestInvoicePaid_BadTypeRejected(t *testing.T) {
	e, _ := newPaymentServer(t)

	body := `{"invoice_type":"Subscription","account_id":"` + id.NewID32() + `"}`
	rec := doJSON(e, http.MethodPost, "/invoices/"+id.NewID32()+"/paid", "", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for an unknown invoice type", rec.Code)
	}
}

func TestExpireOffers_ReportsCount(t *testing.T) {
	e, offers := newPaymentServer(t)
	asOf := time.Now().UTC()

	_, err := offers.Create(context.Background(), offerUC.CreateOfferInput{
		LenderUserID:           id.NewID32(),
		BlockchainKey:          "bsc",
		TokenID:                "usdc",
		OfferedPrincipalAmount: decimal.NewFromInt(10_000_000_000),
		MinLoanPrincipalAmount: decimal.NewFromInt(1_000_000_000),
		MaxLoanPrincipalAmount: decimal.NewFromInt(5_000_000_000),
		InterestRate:           decimal.RequireFromString("12.5"),
		TermInMonthsOptions:    []int{6},
		ExpirationDate:         asOf.Add(-time.Hour),
		AsOf:                   asOf.Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	rec := doJSON(e, http.MethodPost, "/loan-offers/expire", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out["expired"] != 1 {
		t.Fatalf("expired = %d, want 1", out["expired"])
	}
}
