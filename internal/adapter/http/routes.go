package http

import "github.com/labstack/echo/v4"

// Register wires every handler onto the echo instance. Mutating routes
// sit behind the idempotency middleware installed by the caller.
func Register(e *echo.Echo, h *Handler, oh *OfferHandler, ah *ApplicationHandler, lh *LoanHandler, ph *PaymentHandler, wh *WithdrawalHandler, gh *LedgerHandler) {
	e.GET("/health", h.Health)

	e.POST("/loan-offers", oh.CreateOffer)
	e.GET("/loan-offers", oh.ListOffers)
	e.GET("/loan-offers/:loan_offer_id", oh.GetOffer)
	e.POST("/loan-offers/:loan_offer_id/close", oh.CloseOffer)

	e.POST("/loan-applications", ah.CreateApplication)
	e.GET("/loan-applications", ah.ListApplications)
	e.PATCH("/loan-applications/:loan_application_id", ah.UpdateApplication)

	e.POST("/loans/match", lh.MatchLoan)
	e.GET("/loans/:loan_id", lh.GetLoan)
	e.POST("/loans/:loan_id/activate", lh.ActivateLoan)
	e.POST("/loans/:loan_id/repayments", lh.RequestRepayment)
	e.POST("/loans/:loan_id/early-repayments", lh.RequestEarlyRepayment)
	e.GET("/loans/:loan_id/liquidation-estimate", lh.EstimateLiquidation)
	e.POST("/loans/:loan_id/liquidations", lh.RequestLiquidation)

	e.POST("/invoices/:invoice_id/paid", ph.InvoicePaid)
	e.POST("/loan-offers/expire", ph.ExpireOffers)
	e.POST("/loan-applications/expire", ph.ExpireApplications)

	e.POST("/withdrawals", wh.RequestWithdrawal)
	e.GET("/withdrawals", wh.ListWithdrawals)
	e.GET("/withdrawals/:withdrawal_id", wh.GetWithdrawal)
	e.POST("/withdrawals/:withdrawal_id/sent", wh.MarkSent)
	e.POST("/withdrawals/:withdrawal_id/confirm", wh.Confirm)
	e.POST("/withdrawals/:withdrawal_id/fail", wh.Fail)
	e.POST("/withdrawals/:withdrawal_id/refund-requests", wh.RequestRefund)
	e.POST("/withdrawals/:withdrawal_id/refund-approvals", wh.ApproveRefund)
	e.POST("/withdrawals/:withdrawal_id/refund-rejections", wh.RejectRefund)

	e.GET("/accounts/:account_id/balance", gh.GetBalance)
	e.GET("/accounts/portfolio", gh.GetPortfolio)
}
