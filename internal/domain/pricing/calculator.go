package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Rounding policy, applied everywhere in this package:
//   - provisions and fee charges round DOWN (the payer is never overcharged)
//   - collateral requirements round UP (a loan is never undercollateralized)
// Both directions are computed exactly on integer smallest-unit amounts;
// no intermediate float ever appears.

var (
	ErrNonPositivePrincipal = errors.New("principal amount must be positive")
	ErrNonPositiveRate      = errors.New("rate must be positive")
)

var hundred = decimal.NewFromInt(100)

// Requirements is the application-time quote: how much collateral must be
// deposited and how much provision the platform retains. Both are frozen
// into the application row at creation time.
type Requirements struct {
	RequiredCollateralAmount decimal.Decimal
	ProvisionAmount          decimal.Decimal
}

// CalculateRequirements sizes collateral and provision for a principal
// amount using the config and bid price observed inside the enclosing
// transaction. minLtvRatio and provisionRate are percentages (60.0 = 60%).
// The minimum configured LTV is used deliberately: it is the most
// conservative bound, demanding the most collateral.
func CalculateRequirements(principalAmount, provisionRate, minLtvRatio, bidPrice decimal.Decimal) (Requirements, error) {
	if !principalAmount.IsPositive() {
		return Requirements{}, ErrNonPositivePrincipal
	}
	if !minLtvRatio.IsPositive() || !bidPrice.IsPositive() {
		return Requirements{}, ErrNonPositiveRate
	}

	// provision = floor(principal * provisionRate / 100); Mul and Shift
	// are exact, so the floor is exact too.
	provision := principalAmount.Mul(provisionRate).Shift(-2).Floor()

	// collateral = ceil(principal / (minLtv/100 * bid))
	//            = ceil(principal * 100 / (minLtv * bid))
	collateral := ceilDiv(principalAmount.Mul(hundred), minLtvRatio.Mul(bidPrice))

	return Requirements{
		RequiredCollateralAmount: collateral,
		ProvisionAmount:          provision,
	}, nil
}

// ceilDiv returns ceil(num/den) exactly via integer quotient + remainder.
func ceilDiv(num, den decimal.Decimal) decimal.Decimal {
	q, r := num.QuoRem(den, 0)
	if !r.IsZero() {
		q = q.Add(decimal.New(1, 0))
	}
	return q
}

// floorDiv returns floor(num/den) exactly; num and den are non-negative
// here so truncation is the floor.
func floorDiv(num, den decimal.Decimal) decimal.Decimal {
	q, _ := num.QuoRem(den, 0)
	return q
}

// LoanCharges are the fee components of an originated loan. Repayment
// amount is principal plus all three.
type LoanCharges struct {
	InterestAmount       decimal.Decimal
	PremiAmount          decimal.Decimal
	LiquidationFeeAmount decimal.Decimal
	RepaymentAmount      decimal.Decimal
}

// CalculateLoanCharges derives the charge components at origination.
// Interest covers the full term up front (rate is annual, percentage);
// premi and the liquidation fee are flat percentages of principal. All
// charges floor.
func CalculateLoanCharges(principalAmount, interestRate decimal.Decimal, termInMonths int, redeliveryFeeRate, liquidationFeeRate decimal.Decimal) LoanCharges {
	months := decimal.NewFromInt(int64(termInMonths))
	twelve := decimal.NewFromInt(12)

	interest := floorDiv(principalAmount.Mul(interestRate).Mul(months), twelve.Mul(hundred))
	premi := principalAmount.Mul(redeliveryFeeRate).Shift(-2).Floor()
	liqFee := principalAmount.Mul(liquidationFeeRate).Shift(-2).Floor()

	return LoanCharges{
		InterestAmount:       interest,
		PremiAmount:          premi,
		LiquidationFeeAmount: liqFee,
		RepaymentAmount:      principalAmount.Add(interest).Add(premi).Add(liqFee),
	}
}
