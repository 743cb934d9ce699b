package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	configs "github.com/starsjackpot/jackpot-services/configs"
	mongodb "github.com/starsjackpot/jackpot-services/internal/db"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/broker"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/config"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/db"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/engine"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/handlers"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/random"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/service"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/store"
	"github.com/starsjackpot/jackpot-services/internal/jackpotsvc/telegram"
	nats "github.com/starsjackpot/jackpot-services/internal/nats"
)

const SERVICE_NAME = "jackpot"

var instanceId string

func init() {
	configs.Logging(SERVICE_NAME + "_service_001")
	configs.LoadEnv(SERVICE_NAME)
	instanceId = configs.CreateUniqueInstance(SERVICE_NAME)
}

func main() {
	cfg := config.Load()

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	// mongo holds the payment orders
	mdb, cancelMongo, err := mongodb.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	defer cancelMongo()
	mongodb.CreateTTLIndexForCollection(mdb, "payment_orders")

	userStore := store.NewUserStore(dbpool)
	transactionStore := store.NewTransactionStore(dbpool)
	taskStore := store.NewTaskStore(dbpool)
	statsStore := store.NewStatsStore(dbpool)
	ledgerStore := store.NewLedgerStore(dbpool)
	paymentStore := store.NewPaymentStore(mdb)

	// telegram bot is optional in local setups
	var tg *telegram.Client
	if cfg.BotToken != "" {
		tg, err = telegram.NewClient(cfg.BotToken)
		if err != nil {
			log.Fatalf("Failed to init telegram bot: %v", err)
		}
	} else {
		log.Warn("BOT_TOKEN is empty, subscription checks and notifications disabled")
	}

	userService := service.NewUserService(userStore, transactionStore, cfg.BotName)

	var checker service.MembershipChecker
	var notifier service.Notifier
	if tg != nil {
		checker = tg
		notifier = tg
	}
	taskService := service.NewTaskService(taskStore, userStore, checker)
	paymentService := service.NewPaymentService(paymentStore, userStore, notifier)

	// draw randomness: external oracle when configured, local provably
	// fair source otherwise
	var source random.Source
	if cfg.OracleURL != "" {
		source = random.NewOracleSource(cfg.OracleURL)
		log.Infof("draws use randomness oracle at %s", cfg.OracleURL)
	} else {
		seedSource, err := random.NewSeedSource()
		if err != nil {
			log.Fatalf("Failed to init draw randomness: %v", err)
		}
		source = seedSource
	}

	scheduler := engine.NewScheduler(ledgerStore, source, cfg.RoundDefaults)

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// init peer message broker
	b := broker.NewBroker(n.Conn, userService, scheduler)
	scheduler.SetEvents(b)

	// finish any round interrupted mid draw
	resumeCtx, cancelResume := context.WithTimeout(context.Background(), 30*time.Second)
	if err := scheduler.Resume(resumeCtx); err != nil {
		log.Errorf("resume interrupted round: %v", err)
	}
	cancelResume()

	// subscribe to socket service
	topic := "socket.service"
	sub, err := b.SubscribSocketService(topic)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := configs.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(configs.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(cfg, scheduler, userService, taskService, paymentService, transactionStore, statsStore)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
