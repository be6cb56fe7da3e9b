package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/mockpay/internal/common"
	pb "github.com/dmitrijs2005/mockpay/internal/proto"
	"github.com/dmitrijs2005/mockpay/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const msgRegistered = "User registered successfully"

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.RegisterRequest
	if err := pb.DecodeRequest(in, &req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := s.sessions.Register(ctx, req.Email, req.Password); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, pb.MessageResponse{Message: msgRegistered})
}

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.LoginRequest
	if err := pb.DecodeRequest(in, &req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	pair, err := s.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, pb.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *GRPCServer) RefreshToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.RefreshRequest
	if err := pb.DecodeRequest(in, &req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	pair, err := s.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, pb.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Charge answers failed charges with OK and status "failed"; only transport
// and cancellation problems are gRPC errors.
func (s *GRPCServer) Charge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.ChargeRequest
	if err := pb.DecodeRequest(in, &req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if claims, ok := claimsFromContext(ctx); ok {
		s.logger.Debug(ctx, "charge requested", "user_id", claims.Subject)
	}

	tx, err := s.payments.Charge(ctx, services.ChargeRequest{
		Amount:         *req.Amount,
		CardNumber:     req.CardNumber,
		ExpirationDate: req.ExpirationDate,
		CVV:            req.CVV,
		CardholderName: req.CardholderName,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, pb.TransactionResponse{
		TransactionID: tx.ID,
		Status:        string(tx.Status),
		Amount:        tx.Amount,
		Message:       tx.Message,
	})
}

func (s *GRPCServer) Refund(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.RefundRequest
	if err := pb.DecodeRequest(in, &req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if claims, ok := claimsFromContext(ctx); ok {
		s.logger.Debug(ctx, "refund requested", "user_id", claims.Subject)
	}

	r, err := s.payments.Refund(ctx, services.RefundRequest{
		TransactionID: req.TransactionID,
		Amount:        *req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return s.reply(ctx, pb.RefundResponse{
		RefundID:              r.ID,
		OriginalTransactionID: r.OriginalTransactionID,
		Status:                string(r.Status),
		Amount:                r.Amount,
		Message:               r.Message,
	})
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.reply(ctx, pb.PingResponse{Status: "OK"})
}

func (s *GRPCServer) reply(ctx context.Context, v any) (*structpb.Struct, error) {
	out, err := pb.Encode(v)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return out, nil
}

// toStatus maps service errors onto gRPC codes. Unknown errors are logged
// and hidden behind a generic message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrMalformedRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, "User already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
