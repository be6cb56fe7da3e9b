package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/mockpay/internal/common"
	pb "github.com/dmitrijs2005/mockpay/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// rpc is the subset of pb.MockPayServiceClient used here.
type rpc interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RefreshToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Charge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Refund(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// tokenlessMethods never carry an access token and are never retried.
var tokenlessMethods = map[string]bool{
	pb.MockPayService_Register_FullMethodName:     true,
	pb.MockPayService_Login_FullMethodName:        true,
	pb.MockPayService_RefreshToken_FullMethodName: true,
	pb.MockPayService_Ping_FullMethodName:         true,
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      rpc

	mu           sync.Mutex
	accessToken  string
	refreshToken string

	// refreshMu lets one rotation run at a time.
	refreshMu sync.Mutex
}

type ChargeInput struct {
	Amount         float64
	CardNumber     string
	ExpirationDate string
	CVV            string
	CardholderName string
}

type RefundInput struct {
	TransactionID string
	Amount        float64
	Reason        string
}

func NewMockPayClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewMockPayServiceClient(conn)
	return c, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = access, refresh
}

// clearTokensIf drops the session only while refresh is still the stored
// refresh token.
func (s *GRPCClient) clearTokensIf(refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshToken == refresh {
		s.accessToken, s.refreshToken = "", ""
	}
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if tokenlessMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if status.Code(err) != codes.Unauthenticated || refresh == "" {
		return err
	}

	if rerr := s.rotate(ctx, refresh); rerr != nil {
		return err
	}

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

// LoggedIn reports whether the client holds a token pair.
func (s *GRPCClient) LoggedIn() bool {
	access, _ := s.tokens()
	return access != ""
}

func (s *GRPCClient) Register(ctx context.Context, email string, password []byte) error {
	in, err := pb.Encode(pb.RegisterRequest{Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	if _, err := s.client.Register(ctx, in); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) error {
	in, err := pb.Encode(pb.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	out, err := s.client.Login(ctx, in)
	if err != nil {
		return s.mapError(err)
	}
	return s.storeTokens(out)
}

// Refresh exchanges the stored refresh token for a new pair. A rejected
// token clears the session.
func (s *GRPCClient) Refresh(ctx context.Context) error {
	_, refresh := s.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	return s.rotate(ctx, refresh)
}

// rotate replaces the pair obtained with stale. When another call has
// already rotated it, the newer pair is kept and no request is sent.
func (s *GRPCClient) rotate(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	_, current := s.tokens()
	if current == "" {
		return ErrNotLoggedIn
	}
	if current != stale {
		return nil
	}

	in, err := pb.Encode(pb.RefreshRequest{RefreshToken: current})
	if err != nil {
		return err
	}

	out, err := s.client.RefreshToken(ctx, in)
	if err != nil {
		err = s.mapError(err)
		if errors.Is(err, ErrUnauthorized) {
			s.clearTokensIf(current)
		}
		return err
	}
	return s.storeTokens(out)
}

func (s *GRPCClient) storeTokens(out *structpb.Struct) error {
	var resp pb.TokenResponse
	if err := pb.Decode(out, &resp); err != nil {
		return err
	}
	s.setTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) Charge(ctx context.Context, ci ChargeInput) (*pb.TransactionResponse, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	amount := ci.Amount
	in, err := pb.Encode(pb.ChargeRequest{
		Amount:         &amount,
		CardNumber:     ci.CardNumber,
		ExpirationDate: ci.ExpirationDate,
		CVV:            ci.CVV,
		CardholderName: ci.CardholderName,
	})
	if err != nil {
		return nil, err
	}

	out, err := s.client.Charge(ctx, in)
	if err != nil {
		return nil, s.mapError(err)
	}

	var resp pb.TransactionResponse
	if err := pb.Decode(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) Refund(ctx context.Context, ri RefundInput) (*pb.RefundResponse, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	amount := ri.Amount
	in, err := pb.Encode(pb.RefundRequest{
		TransactionID: ri.TransactionID,
		Amount:        &amount,
		Reason:        ri.Reason,
	})
	if err != nil {
		return nil, err
	}

	out, err := s.client.Refund(ctx, in)
	if err != nil {
		return nil, s.mapError(err)
	}

	var resp pb.RefundResponse
	if err := pb.Decode(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	out, err := s.client.Ping(ctx, &structpb.Struct{})
	if err != nil {
		return s.mapError(err)
	}

	var resp pb.PingResponse
	if err := pb.Decode(out, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
