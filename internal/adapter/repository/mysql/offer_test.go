package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	offerDomain "cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/internal/testutil/dbtest"
	"cryptolend-backend/pkg/id"
)

func makeOffer(offerID, lenderID string, status offerDomain.Status, created, expiration time.Time) *offerDomain.LoanOffer {
	return &offerDomain.LoanOffer{
		LoanOfferID:              offerID,
		LenderUserID:             lenderID,
		BlockchainKey:            "bsc",
		TokenID:                  "usdc",
		OfferedPrincipalAmount:   decimal.NewFromInt(10_000_000_000),
		AvailablePrincipalAmount: decimal.NewFromInt(10_000_000_000),
		MinLoanPrincipalAmount:   decimal.NewFromInt(1_000_000_000),
		MaxLoanPrincipalAmount:   decimal.NewFromInt(5_000_000_000),
		InterestRate:             decimal.RequireFromString("12.5"),
		TermInMonthsOptions:      "3,6,12",
		Status:                   status,
		CreatedDate:              created,
		ExpirationDate:           expiration,
	}
}

func TestOfferRepository_CreateAndGet(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewOfferRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	oid := id.NewID32()
	if err := repo.Create(ctx, makeOffer(oid, id.NewID32(), offerDomain.StatusFunding, now, now.Add(72*time.Hour))); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByOfferID(ctx, oid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != offerDomain.StatusFunding {
		t.Fatalf("status = %s, want Funding", got.Status)
	}
	if !got.AvailablePrincipalAmount.Equal(got.OfferedPrincipalAmount) {
		t.Fatalf("fresh offer must have available == offered")
	}
}

func TestOfferRepository_GetNotFound(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewOfferRepository(db)

	if _, err := repo.GetByOfferID(context.Background(), id.NewID32()); !errors.Is(err, offerDomain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByOfferIDForUpdate(context.Background(), id.NewID32()); !errors.Is(err, offerDomain.ErrNotFound) {
		t.Fatalf("for update: want ErrNotFound, got %v", err)
	}
}

func TestOfferRepository_List_FilterOrderPage(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewOfferRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	lender := id.NewID32()
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		oid := id.NewID32()
		ids = append(ids, oid)
		status := offerDomain.StatusFunding
		if i == 4 {
			status = offerDomain.StatusClosed
		}
		o := makeOffer(oid, lender, status, base.Add(time.Duration(i)*time.Hour), base.Add(100*time.Hour))
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	// status filter
	rows, total, err := repo.List(ctx, offerDomain.ListFilter{Status: offerDomain.StatusFunding, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(rows) != 4 {
		t.Fatalf("funding filter: total=%d len=%d, want 4/4", total, len(rows))
	}
	// newest created_date first
	if rows[0].LoanOfferID != ids[3] {
		t.Fatalf("order: first = %s, want %s", rows[0].LoanOfferID, ids[3])
	}

	// pagination: page 2 of size 2 over 5 rows
	rows, total, err = repo.List(ctx, offerDomain.ListFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if total != 5 {
		t.Fatalf("unfiltered total = %d, want 5", total)
	}
	if len(rows) != 2 {
		t.Fatalf("page 2 len = %d, want 2", len(rows))
	}
	if rows[0].LoanOfferID != ids[2] {
		t.Fatalf("page 2 first = %s, want %s", rows[0].LoanOfferID, ids[2])
	}
}

func TestOfferRepository_ListExpirable(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewOfferRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := makeOffer(id.NewID32(), id.NewID32(), offerDomain.StatusFunding, past, past)
	live := makeOffer(id.NewID32(), id.NewID32(), offerDomain.StatusPublished, past, future)
	closed := makeOffer(id.NewID32(), id.NewID32(), offerDomain.StatusClosed, past, past)
	for _, o := range []*offerDomain.LoanOffer{expired, live, closed} {
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rows, err := repo.ListExpirable(ctx, now)
	if err != nil {
		t.Fatalf("list expirable: %v", err)
	}
	if len(rows) != 1 || rows[0].LoanOfferID != expired.LoanOfferID {
		t.Fatalf("expirable = %d rows, want only the past-due funding offer", len(rows))
	}
}

func TestOfferRepository_SaveDrawsDownAvailable(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewOfferRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	oid := id.NewID32()
	o := makeOffer(oid, id.NewID32(), offerDomain.StatusPublished, now, now.Add(time.Hour))
	if err := repo.Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}

	o.AvailablePrincipalAmount = o.AvailablePrincipalAmount.Sub(decimal.NewFromInt(5_000_000_000))
	if err := repo.Save(ctx, o); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetByOfferID(ctx, oid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.AvailablePrincipalAmount.Equal(decimal.NewFromInt(5_000_000_000)) {
		t.Fatalf("available = %s, want 5000000000", got.AvailablePrincipalAmount)
	}
}
