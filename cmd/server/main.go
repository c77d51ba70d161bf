package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tv-spot-scheduler/internal/config"
	"github.com/iliyamo/tv-spot-scheduler/internal/database"
	"github.com/iliyamo/tv-spot-scheduler/internal/handler"
	"github.com/iliyamo/tv-spot-scheduler/internal/queue"
	"github.com/iliyamo/tv-spot-scheduler/internal/repository"
	"github.com/iliyamo/tv-spot-scheduler/internal/router"
	"github.com/iliyamo/tv-spot-scheduler/internal/scheduler"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	deals := repository.NewDealRepo(db)
	events := repository.NewSpecialEventRepo(db)
	packages := repository.NewExtraPackageRepo(db)
	payments := repository.NewPaymentRepo(db)
	spots := repository.NewAdSpotRepo(db)

	store := repository.NewStore(db, deals, events, packages, spots)
	sched := scheduler.NewService(store, cfg.AdmitMaxRetries, cfg.AdmitRetryBackoff)

	// Redis is optional: without it the rate limiter and response cache
	// simply pass requests through.
	rdb := config.NewRedisClient()

	authH := handler.NewAuthHandler(cfg, users)
	dealH := handler.NewDealHandler(deals, events, packages, payments, spots)
	spotH := handler.NewSpotHandler(sched, deals, spots)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH)
	router.RegisterAPI(e, dealH, spotH, cfg, rdb)

	// Background consumer appends lifecycle events to logs/airings.log.
	go func() {
		if err := queue.StartSpotConsumer(); err != nil {
			log.Printf("spot consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
