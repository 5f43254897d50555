package ledger

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
	domainRate "cryptolend-backend/internal/domain/rate"
	"cryptolend-backend/internal/testutil/dbtest"
	"cryptolend-backend/pkg/id"
)

var testAsOf = time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Usecase, *gorm.DB) {
	t.Helper()
	db := dbtest.OpenSQLite(t)
	currencies := []domainCurrency.Currency{
		{BlockchainKey: "bsc", TokenID: "usdc", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		{BlockchainKey: "bsc", TokenID: "bnb", Symbol: "BNB", Name: "BNB", Decimals: 8},
	}
	for i := range currencies {
		if err := db.Create(&currencies[i]).Error; err != nil {
			t.Fatalf("seed currency: %v", err)
		}
	}
	return NewUsecase(mysql.NewGormUoW(db)), db
}

func seedUSDFeed(t *testing.T, db *gorm.DB, tokenID, bid string) {
	t.Helper()
	feed := domainRate.PriceFeed{
		FeedID:        id.NewID32(),
		BlockchainKey: "bsc",
		BaseTokenID:   tokenID,
		QuoteTokenID:  "usd",
		Provider:      "binance",
	}
	if err := db.Create(&feed).Error; err != nil {
		t.Fatalf("seed feed: %v", err)
	}
	err := db.Create(&domainRate.ExchangeRate{
		FeedID:     feed.FeedID,
		BidPrice:   decimal.RequireFromString(bid),
		AskPrice:   decimal.RequireFromString(bid),
		SourceDate: testAsOf.Add(-time.Hour),
	}).Error
	if err != nil {
		t.Fatalf("seed rate: %v", err)
	}
}

func deposit(t *testing.T, db *gorm.DB, accountID, tokenID string, amount int64) {
	t.Helper()
	err := mysql.NewMutationRepository(db).Append(context.Background(), &domainLedger.AccountMutation{
		MutationID:    id.NewID32(),
		AccountID:     accountID,
		BlockchainKey: "bsc",
		TokenID:       tokenID,
		MutationType:  domainLedger.MutationDeposit,
		Amount:        decimal.NewFromInt(amount),
		MutationDate:  testAsOf.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func TestBalance_WithUSDValuation(t *testing.T) {
	u, db := setup(t)
	seedUSDFeed(t, db, "usdc", "1.0")
	account := id.NewID32()
	// 25 USDC in 6-decimal smallest units
	deposit(t, db, account, "usdc", 25_000_000)

	dto, err := u.Balance(context.Background(), account, testAsOf)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !dto.Balance.Equal(decimal.NewFromInt(25_000_000)) {
		t.Fatalf("balance = %s, want 25000000", dto.Balance)
	}
	if dto.ValuationUSD == nil {
		t.Fatal("valuation missing despite a USD feed")
	}
	if !dto.ValuationUSD.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("valuation = %s, want 25 whole USD", dto.ValuationUSD)
	}
}

func TestBalance_NoUSDFeedLeavesValuationNil(t *testing.T) {
	u, db := setup(t)
	account := id.NewID32()
	deposit(t, db, account, "bnb", 100_000_000)

	dto, err := u.Balance(context.Background(), account, testAsOf)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !dto.Balance.Equal(decimal.NewFromInt(100_000_000)) {
		t.Fatalf("balance = %s, want 100000000", dto.Balance)
	}
	if dto.ValuationUSD != nil {
		t.Fatalf("valuation = %s, want nil without a USD feed", dto.ValuationUSD)
	}
}

func TestBalance_UnknownAccount(t *testing.T) {
	u, _ := setup(t)

	_, err := u.Balance(context.Background(), id.NewID32(), testAsOf)
	if !errors.Is(err, domainLedger.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestBalance_ValuationFloorsToWholeUSD(t *testing.T) {
	u, db := setup(t)
	seedUSDFeed(t, db, "bnb", "850.5")
	account := id.NewID32()
	// 0.03 BNB in 8-decimal smallest units: 0.03 * 850.5 = 25.515 USD
	deposit(t, db, account, "bnb", 3_000_000)

	dto, err := u.Balance(context.Background(), account, testAsOf)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if dto.ValuationUSD == nil || !dto.ValuationUSD.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("valuation = %v, want floored 25", dto.ValuationUSD)
	}
}

func TestPortfolio_TotalSkipsUnvaluedAccounts(t *testing.T) {
	u, db := setup(t)
	seedUSDFeed(t, db, "usdc", "1.0")
	// no bnb feed

	usdcAccount, bnbAccount := id.NewID32(), id.NewID32()
	deposit(t, db, usdcAccount, "usdc", 40_000_000)
	deposit(t, db, bnbAccount, "bnb", 100_000_000)

	out, err := u.Portfolio(context.Background(), []string{usdcAccount, bnbAccount}, testAsOf)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(out.Accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(out.Accounts))
	}
	// only the valued account contributes; the bnb balance is listed but
	// never guessed into the total
	if !out.TotalValuationUSD.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("total = %s, want 40", out.TotalValuationUSD)
	}
}

func TestPortfolio_UnknownAccountsAreOmitted(t *testing.T) {
	u, db := setup(t)
	seedUSDFeed(t, db, "usdc", "1.0")
	account := id.NewID32()
	deposit(t, db, account, "usdc", 10_000_000)

	out, err := u.Portfolio(context.Background(), []string{account, id.NewID32()}, testAsOf)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(out.Accounts) != 1 {
		t.Fatalf("accounts = %d, want only the known account", len(out.Accounts))
	}
}
