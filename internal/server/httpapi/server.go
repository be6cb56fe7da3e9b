// Package httpapi serves the REST flavour of the API with gin: the auth
// and payment routes, a health probe, payment statistics and Prometheus
// request metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/auth"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/dmitrijs2005/mockpay/internal/server/services"
	"github.com/dmitrijs2005/mockpay/internal/server/telemetry"
)

const shutdownTimeout = 5 * time.Second

type SessionManager interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type PaymentProcessor interface {
	Charge(ctx context.Context, req services.ChargeRequest) (*models.Transaction, error)
	Refund(ctx context.Context, req services.RefundRequest) (*models.Refund, error)
}

type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

type StatsSource interface {
	PaymentStats(ctx context.Context) (telemetry.PaymentStats, error)
}

type HTTPServer struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewHTTPServer(address string, handler http.Handler, l logging.Logger) *HTTPServer {
	return &HTTPServer{
		address: address,
		handler: handler,
		logger:  l.With("module", "http_server"),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve handles requests on lis until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout. It returns once draining
// has finished.
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
		drained <- err
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-drained
}
