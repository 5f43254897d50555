package pricing

import "github.com/shopspring/decimal"

// Fixed haircut applied to market value when estimating forced-sale
// proceeds: 2% slippage.
var slippageFactor = decimal.NewFromInt(98)

// LiquidationEstimate is the read-only early-liquidation preview for a
// loan. Nothing here is persisted.
type LiquidationEstimate struct {
	CurrentValuationAmount     decimal.Decimal
	CurrentLtvRatio            decimal.Decimal
	EstimatedLiquidationAmount decimal.Decimal
	TotalOutstandingAmount     decimal.Decimal
	EstimatedSurplusDeficit    decimal.Decimal
}

// EstimateLiquidation values the collateral at the latest bid price,
// applies the slippage haircut, and reports the expected surplus (or
// deficit, negative) against everything the borrower owes.
func EstimateLiquidation(principalAmount, interestAmount, premiAmount, liquidationFeeAmount, collateralAmount, bidPrice decimal.Decimal) LiquidationEstimate {
	valuation := collateralAmount.Mul(bidPrice).Floor()

	var ltv decimal.Decimal
	if valuation.IsPositive() {
		ltv = principalAmount.DivRound(valuation, 8)
	}

	estimated := floorDiv(valuation.Mul(slippageFactor), hundred)
	outstanding := principalAmount.Add(interestAmount).Add(premiAmount).Add(liquidationFeeAmount)

	return LiquidationEstimate{
		CurrentValuationAmount:     valuation,
		CurrentLtvRatio:            ltv,
		EstimatedLiquidationAmount: estimated,
		TotalOutstandingAmount:     outstanding,
		EstimatedSurplusDeficit:    estimated.Sub(outstanding),
	}
}
