package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gothenburg-taxi/dispatch-service/config"
	"github.com/gothenburg-taxi/dispatch-service/internal/adapter/backend"
	httpserver "github.com/gothenburg-taxi/dispatch-service/internal/adapter/http/server"
	rabbitadapter "github.com/gothenburg-taxi/dispatch-service/internal/adapter/rabbit"
	"github.com/gothenburg-taxi/dispatch-service/internal/adapter/ws"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/assignment"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/dispatch"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/matcher"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/registry"
	"github.com/gothenburg-taxi/dispatch-service/internal/service/trips"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	"github.com/gothenburg-taxi/dispatch-service/pkg/rabbit"
	"github.com/gothenburg-taxi/dispatch-service/pkg/wshub"
)

const ServiceName = "dispatch-service"

type App struct {
	httpServer *httpserver.API
	rabbitMQ   *rabbit.RabbitMQ

	driverHub    *wshub.ConnectionHub
	passengerHub *wshub.ConnectionHub

	cfg config.Config
	log logger.Logger
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "Failed to connect to RabbitMQ", err)
		return nil, err
	}

	producer := rabbitadapter.NewTripProducer(rabbitMQ, ServiceName)
	if err := producer.Setup(ctx); err != nil {
		log.Error(ctx, "Failed to declare RabbitMQ topology", err)
		return nil, err
	}

	driverHub := wshub.NewConnHub(log)
	passengerHub := wshub.NewConnHub(log)
	notifier := ws.NewHubNotifier(driverHub, passengerHub, log)

	reg := registry.New(ServiceName, log)
	store := trips.NewStore(log)
	guard := assignment.NewGuard(store, reg, log)
	match := matcher.New(cfg.Matching.TimeWindow, cfg.Matching.RadiusKm, cfg.Matching.MaxCompanions)
	backendClient := backend.New(cfg.Backend.BaseURL, ServiceName)

	dispatcher := dispatch.New(reg, store, guard, match, notifier, backendClient, producer, ServiceName, log)

	sessions := ws.NewSessionHandler(driverHub, passengerHub, dispatcher, ServiceName, log)

	httpServer, err := httpserver.New(cfg, dispatcher, reg, store, sessions, ServiceName, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return &App{
		httpServer:   httpServer,
		rabbitMQ:     rabbitMQ,
		driverHub:    driverHub,
		passengerHub: passengerHub,
		cfg:          cfg,
		log:          log,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "dispatch service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "dispatch service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.driverHub != nil {
		a.driverHub.Close()
	}
	if a.passengerHub != nil {
		a.passengerHub.Close()
	}

	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close RabbitMQ connection", "error", err.Error())
		}
	}
}
