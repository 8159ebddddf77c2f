package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/numbet-services/configs"
	"github.com/avvvet/numbet-services/internal/auth"
	svcconfig "github.com/avvvet/numbet-services/internal/gamesvc/config"
	natsconn "github.com/avvvet/numbet-services/internal/nats"
	"github.com/avvvet/numbet-services/internal/socketsvc/broker"
	"github.com/avvvet/numbet-services/internal/socketsvc/routes"
	"github.com/avvvet/numbet-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

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

	// Connect to NATS
	n, err := natsconn.Connect(SERVICE_NAME + "_service_" + instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// the displayed viewer count starts somewhere in 1000..10000 until an admin sets it
	initialViewers := int64(1000 + rand.Intn(9001))
	s := ws.NewWs(auth.New(cfg.JWTSecret), initialViewers)

	b := broker.NewBroker(n.Conn, s.Broadcast, s.SetViewers)
	s.Broker = b

	sub, err := b.Subscribe(natsconn.GameTopic)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to %s %v", natsconn.GameTopic, err)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)
	r.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RateWindow))

	routes.SetRoutes(r, s, cfg.SocketPort)

	server := &http.Server{
		Addr:        ":" + cfg.SocketPort,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s with %d initial viewers", SERVICE_NAME, server.Addr, initialViewers)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := sub.Unsubscribe(); err != nil {
		log.Warnf("unsubscribe %s: %v", natsconn.GameTopic, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
