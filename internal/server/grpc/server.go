// Package grpc exposes the session and payment services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/mockpay/internal/logging"
	pb "github.com/dmitrijs2005/mockpay/internal/proto"
	"github.com/dmitrijs2005/mockpay/internal/server/auth"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/dmitrijs2005/mockpay/internal/server/services"
	"google.golang.org/grpc"
)

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

type GRPCServer struct {
	address  string
	sessions SessionManager
	payments PaymentProcessor
	tokens   TokenValidator
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, sessions SessionManager, payments PaymentProcessor, tokens TokenValidator) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: sessions,
		payments: payments,
		tokens:   tokens,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully. It returns once in-flight RPCs have finished.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	pb.RegisterMockPayServiceServer(srv, s)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	<-stopped
	return nil
}
