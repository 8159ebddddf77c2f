package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/numbet-services/configs"
	"github.com/avvvet/numbet-services/internal/auth"
	"github.com/avvvet/numbet-services/internal/db"
	"github.com/avvvet/numbet-services/internal/gamesvc/broker"
	svcconfig "github.com/avvvet/numbet-services/internal/gamesvc/config"
	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/handlers"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/avvvet/numbet-services/internal/gamesvc/sms"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	natsconn "github.com/avvvet/numbet-services/internal/nats"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY is not set")
	}

	multiplier, err := decimal.NewFromString(cfg.Multiplier)
	if err != nil || !multiplier.IsPositive() {
		log.Fatalf("invalid DEFAULT_MULTIPLIER %q", cfg.Multiplier)
	}

	ctx := context.Background()

	database, err := db.ConnectToDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Disconnect(database)
	log.Printf("mongo connection established successfully (%s)", database.Name())

	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Connect to NATS
	n, err := natsconn.Connect(SERVICE_NAME + "_service_" + instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	events := broker.NewBroker(n.Conn)

	var sender service.SMSSender = sms.LogSender{}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sender = sms.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	} else {
		log.Warn("TWILIO_* not set, OTP codes are only written to the log")
	}

	clock := gameday.NewClock(cfg.Location)
	tx := store.NewTxRunner(database, cfg.UseTransactions)
	tokenAuth := auth.New(cfg.JWTSecret)

	users := store.NewUserStore(database)
	games := store.NewGameStore(database)
	bets := store.NewBetStore(database)
	deposits := store.NewDepositStore(database)
	withdrawals := store.NewWithdrawalStore(database)
	otps := store.NewOTPStore(database)
	admins := store.NewAdminStore(database)

	services := handlers.Services{
		Games:      service.NewGameService(games, events, clock),
		Bets:       service.NewBetService(users, games, bets, tx, clock, service.BetLimits{Min: cfg.MinBet, Max: cfg.MaxBet}),
		Settlement: service.NewSettlementService(games, bets, users, tx, events, clock, cfg.SettleWorkers, multiplier),
		Funds:      service.NewFundsService(users, deposits, withdrawals, tx, clock, cfg.MinDeposit),
		Users: service.NewUserService(users, otps, bets, deposits, withdrawals, sender, clock, service.OTPPolicy{
			TTL:         cfg.OTPTTL,
			MaxAttempts: cfg.OTPMaxAttempts,
			PhonePrefix: cfg.PhonePrefix,
		}),
		Admins: service.NewAdminService(admins, tokenAuth, cfg.AdminTokenTTL),
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := services.Admins.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RateWindow))

	h := handlers.NewHandler(services, tokenAuth, cfg.Port)
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
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
