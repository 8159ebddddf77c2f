package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/numbet-services/configs"
	"github.com/avvvet/numbet-services/internal/db"
	"github.com/avvvet/numbet-services/internal/gamesvc/broker"
	svcconfig "github.com/avvvet/numbet-services/internal/gamesvc/config"
	"github.com/avvvet/numbet-services/internal/gamesvc/gameday"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/avvvet/numbet-services/internal/gamesvc/store"
	natsconn "github.com/avvvet/numbet-services/internal/nats"
)

const SERVICE_NAME = "ctl"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

// ctl runs the scheduled jobs: the daily game record and the sweep that
// settles bets left pending by an interrupted draw.
func main() {
	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	multiplier, err := decimal.NewFromString(cfg.Multiplier)
	if err != nil || !multiplier.IsPositive() {
		log.Fatalf("invalid DEFAULT_MULTIPLIER %q", cfg.Multiplier)
	}

	database, err := db.ConnectToDB(context.Background(), cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Disconnect(database)
	log.Printf("mongo connection established successfully (%s)", database.Name())

	n, err := natsconn.Connect(SERVICE_NAME + "_service_" + instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()

	events := broker.NewBroker(n.Conn)
	clock := gameday.NewClock(cfg.Location)
	tx := store.NewTxRunner(database, cfg.UseTransactions)

	games := store.NewGameStore(database)
	bets := store.NewBetStore(database)
	users := store.NewUserStore(database)

	gameService := service.NewGameService(games, events, clock)
	settlement := service.NewSettlementService(games, bets, users, tx, events, clock, cfg.SettleWorkers, multiplier)

	c := cron.New(cron.WithLocation(cfg.Location), cron.WithSeconds())

	if _, err := c.AddFunc(cfg.CreateGameSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		g, err := gameService.CreateGame(ctx)
		if err != nil {
			log.Errorf("[cron] create game: %v", err)
			return
		}
		log.Infof("[cron] game %s ready", g.GameID)
	}); err != nil {
		log.Fatalf("invalid CREATE_GAME_SCHEDULE %q: %v", cfg.CreateGameSchedule, err)
	}

	if _, err := c.AddFunc(cfg.SettleSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		settled, err := settlement.ResumePending(ctx)
		if err != nil {
			log.Errorf("[cron] settle sweep: %v", err)
			return
		}
		if settled > 0 {
			log.Infof("[cron] settle sweep finished %d pending bets", settled)
		}
	}); err != nil {
		log.Fatalf("invalid SETTLE_SWEEP_SCHEDULE %q: %v", cfg.SettleSweepSchedule, err)
	}

	c.Start()
	log.Infof("%s service started (create game %q, sweep %q, zone %s)",
		SERVICE_NAME, cfg.CreateGameSchedule, cfg.SettleSweepSchedule, cfg.Location)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	<-c.Stop().Done()
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
