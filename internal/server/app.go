// Package server assembles the mockpay server: storage backend, password
// hasher, token issuer, session and payment services, and the gRPC and
// HTTP transports that expose them.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/mockpay/internal/cryptox"
	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/auth"
	"github.com/dmitrijs2005/mockpay/internal/server/config"
	"github.com/dmitrijs2005/mockpay/internal/server/httpapi"
	"github.com/dmitrijs2005/mockpay/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mockpay/internal/server/services"
	"github.com/dmitrijs2005/mockpay/internal/server/telemetry"

	gs "github.com/dmitrijs2005/mockpay/internal/server/grpc"
)

const meterName = "github.com/dmitrijs2005/mockpay/internal/server"

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     repomanager.RepositoryManager
	telemetry *telemetry.Telemetry
	issuer    *auth.Issuer
	sessions  *services.SessionService
	payments  *services.PaymentService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repos, err := repomanager.NewRepositoryManager(ctx, repomanager.Options{
		Storage:     c.Storage,
		DatabaseDSN: c.DatabaseDSN,
		RedisAddr:   c.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app, err := newApp(c, logger, repos)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, repos repomanager.RepositoryManager) (*App, error) {
	hasher, err := cryptox.NewPasswordHasher(c.PasswordHasher)
	if err != nil {
		return nil, err
	}

	creds, err := services.NewCredentialStore(repos.Users(), hasher, logger)
	if err != nil {
		return nil, fmt.Errorf("credential store init error: %w", err)
	}

	issuer, err := auth.NewIssuer([]byte(c.SigningKey), c.Issuer, c.Audience, c.AccessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token issuer init error: %w", err)
	}

	tel := telemetry.New()

	payments, err := services.NewPaymentService(services.PaymentConfig{
		ChargeSuccessRate: c.ChargeSuccessRate,
		RefundSuccessRate: c.RefundSuccessRate,
		ProcessingDelay:   c.ProcessingDelay,
	}, logger, services.WithMeter(tel.Meter(meterName)))
	if err != nil {
		return nil, fmt.Errorf("payment service init error: %w", err)
	}

	return &App{
		config:    c,
		logger:    logger,
		repos:     repos,
		telemetry: tel,
		issuer:    issuer,
		sessions:  services.NewSessionService(creds, repos.Users(), issuer, c.RefreshTokenValidityDuration, logger),
		payments:  payments,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Received signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.payments, app.issuer)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	router := httpapi.NewRouter(httpapi.Deps{
		Sessions: app.sessions,
		Payments: app.payments,
		Tokens:   app.issuer,
		Stats:    app.telemetry,
		Metrics:  httpapi.NewMetrics(),
		Logger:   app.logger,
	})

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

// Run serves both transports until ctx is cancelled, a termination signal
// arrives or either server fails, then releases storage and telemetry.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg      sync.WaitGroup
		grpcErr error
		httpErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		grpcErr = app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		httpErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Shutting down...")

	shutdownErr := errors.Join(
		app.repos.Close(),
		app.telemetry.Shutdown(context.Background()),
	)

	return errors.Join(grpcErr, httpErr, shutdownErr)
}
