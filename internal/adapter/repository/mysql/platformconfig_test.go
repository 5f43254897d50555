package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	configDomain "cryptolend-backend/internal/domain/platformconfig"
	"cryptolend-backend/internal/testutil/dbtest"
)

func makeConfig(effective time.Time, provisionRate string) *configDomain.PlatformConfig {
	return &configDomain.PlatformConfig{
		EffectiveDate:             effective,
		LoanProvisionRate:         decimal.RequireFromString(provisionRate),
		LoanMinLtvRatio:           decimal.RequireFromString("60.0"),
		LoanMaxLtvRatio:           decimal.RequireFromString("80.0"),
		RedeliveryFeeRate:         decimal.RequireFromString("1.0"),
		LiquidationFeeRate:        decimal.RequireFromString("0.5"),
		WithdrawPlatformFeeAmount: decimal.Zero,
		RepaymentDurationDays:     7,
	}
}

func TestPlatformConfigRepository_ResolveAsOf(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewPlatformConfigRepository(db)
	ctx := context.Background()

	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Append(ctx, makeConfig(jan, "3.0")); err != nil {
		t.Fatalf("append jan: %v", err)
	}
	if err := repo.Append(ctx, makeConfig(jun, "4.0")); err != nil {
		t.Fatalf("append jun: %v", err)
	}

	// between the two versions: january config rules
	got, err := repo.ResolveAsOf(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("resolve march: %v", err)
	}
	if !got.LoanProvisionRate.Equal(decimal.RequireFromString("3.0")) {
		t.Fatalf("march provision rate = %s, want 3.0", got.LoanProvisionRate)
	}

	// after the june version
	got, err = repo.ResolveAsOf(ctx, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("resolve august: %v", err)
	}
	if !got.LoanProvisionRate.Equal(decimal.RequireFromString("4.0")) {
		t.Fatalf("august provision rate = %s, want 4.0", got.LoanProvisionRate)
	}

	// exactly at an effective date: that version applies
	got, err = repo.ResolveAsOf(ctx, jun)
	if err != nil {
		t.Fatalf("resolve at boundary: %v", err)
	}
	if !got.LoanProvisionRate.Equal(decimal.RequireFromString("4.0")) {
		t.Fatalf("boundary provision rate = %s, want 4.0", got.LoanProvisionRate)
	}
}

func TestPlatformConfigRepository_ResolveBeforeAnyVersion(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewPlatformConfigRepository(db)
	ctx := context.Background()

	if err := repo.Append(ctx, makeConfig(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), "3.0")); err != nil {
		t.Fatalf("append: %v", err)
	}

	_, err := repo.ResolveAsOf(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, configDomain.ErrConfigNotFound) {
		t.Fatalf("want ErrConfigNotFound, got %v", err)
	}
}

func TestPlatformConfigRepository_SameEffectiveDateLatestRowWins(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	repo := NewPlatformConfigRepository(db)
	ctx := context.Background()

	eff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Append(ctx, makeConfig(eff, "3.0")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, makeConfig(eff, "5.0")); err != nil {
		t.Fatalf("append correction: %v", err)
	}

	got, err := repo.ResolveAsOf(ctx, eff.Add(time.Hour))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !got.LoanProvisionRate.Equal(decimal.RequireFromString("5.0")) {
		t.Fatalf("provision rate = %s, want the correction row 5.0", got.LoanProvisionRate)
	}
}
