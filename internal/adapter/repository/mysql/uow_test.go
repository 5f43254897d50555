package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	loanDomain "cryptolend-backend/internal/domain/loan"
	offerDomain "cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/internal/domain/uow"
	"cryptolend-backend/internal/testutil/dbtest"
	"cryptolend-backend/pkg/id"
)

func TestGormUoW_WithinTx_Commits(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	u := NewGormUoW(db)
	ctx := context.Background()

	now := time.Now().UTC()
	oid := id.NewID32()
	err := u.WithinTx(ctx, func(r uow.Repos) error {
		return r.Offers.Create(ctx, makeOffer(oid, id.NewID32(), offerDomain.StatusFunding, now, now.Add(72*time.Hour)))
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	if _, err := NewOfferRepository(db).GetByOfferID(ctx, oid); err != nil {
		t.Fatalf("committed offer not visible: %v", err)
	}
}

func TestGormUoW_WithinTx_RollsBackOnError(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	u := NewGormUoW(db)
	ctx := context.Background()

	boom := errors.New("boom")
	now := time.Now().UTC()
	oid := id.NewID32()
	err := u.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Offers.Create(ctx, makeOffer(oid, id.NewID32(), offerDomain.StatusFunding, now, now.Add(72*time.Hour))); err != nil {
			t.Fatalf("create inside tx: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("tx err = %v, want boom", err)
	}

	if _, err := NewOfferRepository(db).GetByOfferID(ctx, oid); !errors.Is(err, offerDomain.ErrNotFound) {
		t.Fatalf("rolled-back offer still visible, err = %v", err)
	}
}

func TestGormUoW_WithinOfferTx_PassesLockedRow(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	u := NewGormUoW(db)
	ctx := context.Background()

	now := time.Now().UTC()
	oid := id.NewID32()
	if err := NewOfferRepository(db).Create(ctx, makeOffer(oid, id.NewID32(), offerDomain.StatusFunding, now, now.Add(72*time.Hour))); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var seen string
	err := u.WithinOfferTx(ctx, oid, func(r uow.Repos, o *offerDomain.LoanOffer) error {
		seen = o.LoanOfferID
		o.Status = offerDomain.StatusClosed
		return r.Offers.Save(ctx, o)
	})
	if err != nil {
		t.Fatalf("offer tx: %v", err)
	}
	if seen != oid {
		t.Fatalf("closure got offer %s, want %s", seen, oid)
	}

	got, err := NewOfferRepository(db).GetByOfferID(ctx, oid)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != offerDomain.StatusClosed {
		t.Fatalf("status = %s, want Closed after tx", got.Status)
	}
}

func TestGormUoW_WithinOfferTx_MissingRow(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	u := NewGormUoW(db)

	called := false
	err := u.WithinOfferTx(context.Background(), id.NewID32(), func(r uow.Repos, o *offerDomain.LoanOffer) error {
		called = true
		return nil
	})
	if !errors.Is(err, offerDomain.ErrNotFound) {
		t.Fatalf("err = %v, want offer.ErrNotFound", err)
	}
	if called {
		t.Fatal("closure must not run when the aggregate row is missing")
	}
}

func TestGormUoW_WithinLoanTx_PassesLockedRow(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	u := NewGormUoW(db)
	ctx := context.Background()

	l := makeLoan(id.NewID32())
	if err := NewLoanRepository(db).Create(ctx, l); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := u.WithinLoanTx(ctx, l.LoanID, func(r uow.Repos, got *loanDomain.Loan) error {
		if got.LoanID != l.LoanID {
			t.Fatalf("closure got loan %s, want %s", got.LoanID, l.LoanID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("loan tx: %v", err)
	}
}
