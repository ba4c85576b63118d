package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gothenburg-taxi/dispatch-service/config"
	"github.com/gothenburg-taxi/dispatch-service/internal/adapter/http/handler"
	"github.com/gothenburg-taxi/dispatch-service/internal/adapter/http/middleware"
	"github.com/gothenburg-taxi/dispatch-service/internal/adapter/ws"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"
	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	dispatch *handler.Dispatch
	health   *handler.Health
	sessions *ws.SessionHandler
}

func New(
	cfg config.Config,
	dispatchService handler.DispatchService,
	drivers handler.DriverDirectory,
	trips handler.TripDirectory,
	sessions *ws.SessionHandler,
	serviceName string,
	log logger.Logger,
) (*API, error) {
	if dispatchService == nil {
		return nil, errors.New("dispatch service is required")
	}
	if sessions == nil {
		return nil, errors.New("session handler is required")
	}

	routes := &handlers{
		dispatch: handler.NewDispatch(dispatchService, drivers, trips, log),
		health:   handler.NewHealth(serviceName, log),
		sessions: sessions,
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(log),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Server.Port),
		cfg:    cfg,
		log:    log,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(serviceName),
	}

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware(serviceName string) http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Metrics(serviceName)(a.mux))))
}
