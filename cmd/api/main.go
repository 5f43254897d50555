package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "cryptolend-backend/internal/adapter/http"
	"cryptolend-backend/internal/adapter/middleware"
	"cryptolend-backend/internal/adapter/repository/mysql"
	"cryptolend-backend/internal/config"
	"cryptolend-backend/internal/infrastructure/cache"
	"cryptolend-backend/internal/infrastructure/db"
	ucapplication "cryptolend-backend/internal/usecase/application"
	ucledger "cryptolend-backend/internal/usecase/ledger"
	ucloan "cryptolend-backend/internal/usecase/loan"
	ucoffer "cryptolend-backend/internal/usecase/offer"
	ucwithdrawal "cryptolend-backend/internal/usecase/withdrawal"
)

func main() {
	// .env is optional; container envs win
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	u := mysql.NewGormUoW(gdb)
	offers := ucoffer.NewUsecase(u)
	applications := ucapplication.NewUsecase(u)
	loans := ucloan.NewUsecase(u)
	withdrawals := ucwithdrawal.NewUsecase(u)
	ledgers := ucledger.NewUsecase(u)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())
	e.Use(middleware.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))

	httpadp.Register(e,
		httpadp.NewHandler(),
		httpadp.NewOfferHandler(offers),
		httpadp.NewApplicationHandler(applications),
		httpadp.NewLoanHandler(loans),
		httpadp.NewPaymentHandler(offers, applications, loans),
		httpadp.NewWithdrawalHandler(withdrawals),
		httpadp.NewLedgerHandler(ledgers),
	)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
