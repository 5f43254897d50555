package withdrawal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cryptolend-backend/internal/adapter/repository/mysql"
	domainCurrency "cryptolend-backend/internal/domain/currency"
	domainLedger "cryptolend-backend/internal/domain/ledger"
	domainWithdrawal "cryptolend-backend/internal/domain/withdrawal"
	"cryptolend-backend/internal/testutil/dbtest"
	"cryptolend-backend/pkg/id"
)

var testAsOf = time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Usecase, *gorm.DB) {
	t.Helper()
	db := dbtest.OpenSQLite(t)
	err := db.Create(&domainCurrency.Currency{
		BlockchainKey:          "bsc",
		TokenID:                "usdc",
		Symbol:                 "USDC",
		Name:                   "USD Coin",
		Decimals:               6,
		MinWithdrawalAmount:    decimal.NewFromInt(1_000),
		MaxWithdrawalAmount:    decimal.NewFromInt(0),
		MinLoanPrincipalAmount: decimal.NewFromInt(1_000_000_000),
		MaxLoanPrincipalAmount: decimal.NewFromInt(100_000_000_000),
	}).Error
	if err != nil {
		t.Fatalf("seed currency: %v", err)
	}
	return NewUsecase(mysql.NewGormUoW(db)), db
}

func fund(t *testing.T, db *gorm.DB, accountID string, amount int64) {
	t.Helper()
	err := mysql.NewMutationRepository(db).Append(context.Background(), &domainLedger.AccountMutation{
		MutationID:    id.NewID32(),
		AccountID:     accountID,
		BlockchainKey: "bsc",
		TokenID:       "usdc",
		MutationType:  domainLedger.MutationDeposit,
		Amount:        decimal.NewFromInt(amount),
		MutationDate:  testAsOf.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("fund account: %v", err)
	}
}

func requestInput(userID, accountID string, amount int64) RequestInput {
	return RequestInput{
		UserID:        userID,
		BeneficiaryID: id.NewID32(),
		AccountID:     accountID,
		BlockchainKey: "bsc",
		TokenID:       "usdc",
		RequestAmount: decimal.NewFromInt(amount),
		AsOf:          testAsOf,
	}
}

func TestRequest_ReservesFunds(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	account := id.NewID32()
	fund(t, db, account, 50_000)

	dto, err := u.Request(ctx, requestInput(id.NewID32(), account, 20_000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if dto.State != string(domainWithdrawal.StateRequested) {
		t.Fatalf("state = %s, want requested", dto.State)
	}

	balance, err := mysql.NewMutationRepository(db).Balance(ctx, account, testAsOf)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	// the reservation lands immediately, not at send time
	if !balance.Equal(decimal.NewFromInt(30_000)) {
		t.Fatalf("balance after request = %s, want 30000", balance)
	}
}

func TestRequest_InsufficientBalance(t *testing.T) {
	u, db := setup(t)
	account := id.NewID32()
	fund(t, db, account, 10_000)

	if _, err := u.Request(context.Background(), requestInput(id.NewID32(), account, 20_000)); err == nil {
		t.Fatal("overdrawing the account must fail")
	}

	var n int64
	db.Table("withdrawals").Count(&n)
	if n != 0 {
		t.Fatalf("failed request left %d withdrawal rows behind", n)
	}
}

func TestRequest_BelowCurrencyMinimum(t *testing.T) {
	u, db := setup(t)
	account := id.NewID32()
	fund(t, db, account, 50_000)

	if _, err := u.Request(context.Background(), requestInput(id.NewID32(), account, 500)); err == nil {
		t.Fatal("request below the currency minimum must fail")
	}
}

func TestLifecycle_SentThenConfirmed(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	account := id.NewID32()
	fund(t, db, account, 50_000)

	dto, err := u.Request(ctx, requestInput(id.NewID32(), account, 20_000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	sent, err := u.MarkSent(ctx, dto.WithdrawalID, decimal.NewFromInt(19_990), "0xabc123", testAsOf.Add(time.Hour))
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if sent.State != string(domainWithdrawal.StateSent) {
		t.Fatalf("state = %s, want sent", sent.State)
	}
	if sent.NetworkFee == nil || !sent.NetworkFee.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("network fee = %v, want request minus sent = 10", sent.NetworkFee)
	}

	confirmed, err := u.Confirm(ctx, dto.WithdrawalID, testAsOf.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.State != string(domainWithdrawal.StateConfirmed) {
		t.Fatalf("state = %s, want confirmed", confirmed.State)
	}

	// confirm is terminal
	if _, err := u.Confirm(ctx, dto.WithdrawalID, testAsOf.Add(3*time.Hour)); err == nil {
		t.Fatal("confirming twice must fail")
	}
}

func TestMarkSent_BeforeRequestStateOnly(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	account := id.NewID32()
	fund(t, db, account, 50_000)

	dto, err := u.Request(ctx, requestInput(id.NewID32(), account, 20_000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := u.MarkSent(ctx, dto.WithdrawalID, decimal.NewFromInt(19_990), "0xabc", testAsOf.Add(time.Hour)); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	_, err = u.MarkSent(ctx, dto.WithdrawalID, decimal.NewFromInt(19_990), "0xdef", testAsOf.Add(2*time.Hour))
	var terr *domainWithdrawal.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TransitionError on a second send", err)
	}
}

func TestMarkSent_AmountBounds(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	account := id.NewID32()
	fund(t, db, account, 50_000)

	dto, err := u.Request(ctx, requestInput(id.NewID32(), account, 20_000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := u.MarkSent(ctx, dto.WithdrawalID, decimal.NewFromInt(20_001), "0xabc", testAsOf); err == nil {
		t.Fatal("sending more than requested must fail")
	}
	if _, err := u.MarkSent(ctx, dto.WithdrawalID, decimal.Zero, "0xabc", testAsOf); err == nil {
		t.Fatal("sending zero must fail")
	}
}

func TestRefund_ApproveRestoresBalance(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	user := id.NewID32()
	account := id.NewID32()
	fund(t, db, account, 50_000)

	dto, err := u.Request(ctx, requestInput(user, account, 20_000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := u.MarkSent(ctx, dto.WithdrawalID, decimal.NewFromInt(20_000), "0xabc", testAsOf.Add(time.Hour)); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	failed, err := u.Fail(ctx, dto.WithdrawalID, "gas spike", testAsOf.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("fail: %v", err)
	}
	if failed.State != string(domainWithdrawal.StateFailed) || failed.FailureReason != "gas spike" {
		t.Fatalf("state = %s reason %q, want failed with the reason", failed.State, failed.FailureReason)
	}

	if _, err := u.RequestRefund(ctx, dto.WithdrawalID, user, testAsOf.Add(3*time.Hour)); err != nil {
		t.Fatalf("request refund: %v", err)
	}

	reviewer := id.NewID32()
	approved, err := u.ApproveRefund(ctx, RefundDecisionInput{WithdrawalID: dto.WithdrawalID, ReviewerUserID: reviewer, AsOf: testAsOf.Add(4 * time.Hour)})
	if err != nil {
		t.Fatalf("approve refund: %v", err)
	}
	if approved.RefundReviewerUserID == nil || *approved.RefundReviewerUserID != reviewer {
		t.Fatal("reviewer must be recorded on approval")
	}

	balance, err := mysql.NewMutationRepository(db).Balance(ctx, account, testAsOf.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	// the compensating mutation restores the reserved amount in full
	if !balance.Equal(decimal.NewFromInt(50_000)) {
		t.Fatalf("balance after refund = %s, want the original 50000", balance)
	}
}

func TestRefund_DecisionIsFinal(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	user := id.NewID32()
	account := id.NewID32()
	fund(t, db, account, 50_000)

	dto, err := u.Request(ctx, requestInput(user, account, 20_000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := u.MarkSent(ctx, dto.WithdrawalID, decimal.NewFromInt(20_000), "0xabc", testAsOf.Add(time.Hour)); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if _, err := u.Fail(ctx, dto.WithdrawalID, "reverted", testAsOf.Add(2*time.Hour)); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, err := u.RequestRefund(ctx, dto.WithdrawalID, user, testAsOf.Add(3*time.Hour)); err != nil {
		t.Fatalf("request refund: %v", err)
	}

	in := RefundDecisionInput{WithdrawalID: dto.WithdrawalID, ReviewerUserID: id.NewID32(), Reason: "duplicate claim", AsOf: testAsOf.Add(4 * time.Hour)}
	if _, err := u.RejectRefund(ctx, in); err != nil {
		t.Fatalf("reject refund: %v", err)
	}

	if _, err := u.ApproveRefund(ctx, in); !errors.Is(err, domainWithdrawal.ErrRefundDecided) {
		t.Fatalf("approve after reject: err = %v, want ErrRefundDecided", err)
	}
	if _, err := u.RejectRefund(ctx, in); !errors.Is(err, domainWithdrawal.ErrRefundDecided) {
		t.Fatalf("second reject: err = %v, want ErrRefundDecided", err)
	}

	// a rejected refund never re-credits the account
	balance, err := mysql.NewMutationRepository(db).Balance(ctx, account, testAsOf.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(30_000)) {
		t.Fatalf("balance = %s, want 30000 with the reservation kept", balance)
	}
}

func TestRefund_WrongUserLooksLikeNotFound(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	account := id.NewID32()
	fund(t, db, account, 50_000)

	dto, err := u.Request(ctx, requestInput(id.NewID32(), account, 20_000))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := u.MarkSent(ctx, dto.WithdrawalID, decimal.NewFromInt(20_000), "0xabc", testAsOf.Add(time.Hour)); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if _, err := u.Fail(ctx, dto.WithdrawalID, "reverted", testAsOf.Add(2*time.Hour)); err != nil {
		t.Fatalf("fail: %v", err)
	}

	_, err = u.RequestRefund(ctx, dto.WithdrawalID, id.NewID32(), testAsOf.Add(3*time.Hour))
	if !errors.Is(err, domainWithdrawal.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for a foreign withdrawal", err)
	}
}

func TestList_FiltersByUser(t *testing.T) {
	u, db := setup(t)
	ctx := context.Background()
	mine, theirs := id.NewID32(), id.NewID32()
	a1, a2 := id.NewID32(), id.NewID32()
	fund(t, db, a1, 100_000)
	fund(t, db, a2, 100_000)

	if _, err := u.Request(ctx, requestInput(mine, a1, 20_000)); err != nil {
		t.Fatalf("request mine: %v", err)
	}
	if _, err := u.Request(ctx, requestInput(theirs, a2, 30_000)); err != nil {
		t.Fatalf("request theirs: %v", err)
	}

	out, err := u.List(ctx, ListInput{UserID: mine, Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out.Total != 1 || len(out.Items) != 1 || out.Items[0].UserID != mine {
		t.Fatalf("list = %d items total %d, want only my withdrawal", len(out.Items), out.Total)
	}
}
