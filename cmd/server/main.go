package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/config"
	"github.com/tochtwerk/gelukstocht/internal/database"
	"github.com/tochtwerk/gelukstocht/internal/handler"
	"github.com/tochtwerk/gelukstocht/internal/queue"
	"github.com/tochtwerk/gelukstocht/internal/repository"
	"github.com/tochtwerk/gelukstocht/internal/router"
	"github.com/tochtwerk/gelukstocht/internal/service"
	"github.com/tochtwerk/gelukstocht/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()

	leaders := repository.NewLeaderRepo(db)
	tokens := repository.NewTokenRepo(db)
	tours := repository.NewTourRepo(db)
	checkpoints := repository.NewCheckpointRepo(db)
	sessions := repository.NewSessionRepo(db)
	teams := repository.NewTeamRepo(db)
	submissions := repository.NewSubmissionRepo(db)
	scores := repository.NewScoreRepo(db)
	coupons := repository.NewCouponRepo(db)
	orders := repository.NewOrderRepo(db)
	events := repository.NewWebhookEventRepo(db)

	var notifier service.NotificationSink = service.NopSink{}
	if cfg.AMQPURL != "" {
		notifier = service.NewAMQPSink(cfg.AMQPURL)
		go func() {
			if err := queue.StartEventConsumer(cfg.AMQPURL); err != nil {
				log.Printf("event consumer stopped: %v", err)
			}
		}()
	}

	sched, err := worker.StartRetentionSweep(submissions, time.Hour)
	if err != nil {
		log.Fatalf("retention sweep: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	auth := handler.NewAuthHandler(cfg, leaders, tokens)
	tour := handler.NewTourHandler(tours, checkpoints)
	session := handler.NewSessionHandler(sessions, tours, teams, notifier)
	join := handler.NewJoinHandler(sessions, tours, teams, notifier)
	play := handler.NewPlayHandler(sessions, tours, checkpoints, submissions, scores)
	scoreboard := handler.NewScoreboardHandler(sessions, checkpoints, scores, service.TemplateInsight{})
	checkout := handler.NewCheckoutHandler(tours, sessions, orders, coupons)
	webhook := handler.NewWebhookHandler(cfg, events, orders, coupons, sessions, notifier)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterLeader(e, cfg.JWTSecret, tour, session, scoreboard, checkout, webhook)
	router.RegisterPlay(e, teams, rlCfg, rdb, join, play, session)
	router.RegisterWebhooks(e, webhook)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
