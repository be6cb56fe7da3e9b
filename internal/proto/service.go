// Package proto describes the mockpay.v1.MockPayService gRPC contract.
//
// Requests and responses travel as google.protobuf.Struct values whose
// fields mirror the JSON bodies of the HTTP API, so the service needs no
// generated code. Encode and Decode convert between the Go message types in
// this package and Structs.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "mockpay.v1.MockPayService"

const (
	MockPayService_Register_FullMethodName     = "/mockpay.v1.MockPayService/Register"
	MockPayService_Login_FullMethodName        = "/mockpay.v1.MockPayService/Login"
	MockPayService_RefreshToken_FullMethodName = "/mockpay.v1.MockPayService/RefreshToken"
	MockPayService_Charge_FullMethodName       = "/mockpay.v1.MockPayService/Charge"
	MockPayService_Refund_FullMethodName       = "/mockpay.v1.MockPayService/Refund"
	MockPayService_Ping_FullMethodName         = "/mockpay.v1.MockPayService/Ping"
)

type MockPayServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Charge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refund(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(MockPayServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MockPayServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MockPayServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var MockPayService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MockPayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(MockPayService_Register_FullMethodName, MockPayServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(MockPayService_Login_FullMethodName, MockPayServiceServer.Login)},
		{MethodName: "RefreshToken", Handler: unaryHandler(MockPayService_RefreshToken_FullMethodName, MockPayServiceServer.RefreshToken)},
		{MethodName: "Charge", Handler: unaryHandler(MockPayService_Charge_FullMethodName, MockPayServiceServer.Charge)},
		{MethodName: "Refund", Handler: unaryHandler(MockPayService_Refund_FullMethodName, MockPayServiceServer.Refund)},
		{MethodName: "Ping", Handler: unaryHandler(MockPayService_Ping_FullMethodName, MockPayServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mockpay/v1/mockpay.proto",
}

func RegisterMockPayServiceServer(s grpc.ServiceRegistrar, srv MockPayServiceServer) {
	s.RegisterService(&MockPayService_ServiceDesc, srv)
}

// MockPayServiceClient calls the service over any client connection.
type MockPayServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMockPayServiceClient(cc grpc.ClientConnInterface) *MockPayServiceClient {
	return &MockPayServiceClient{cc: cc}
}

func (c *MockPayServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MockPayServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MockPayService_Register_FullMethodName, in, opts...)
}

func (c *MockPayServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MockPayService_Login_FullMethodName, in, opts...)
}

func (c *MockPayServiceClient) RefreshToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MockPayService_RefreshToken_FullMethodName, in, opts...)
}

func (c *MockPayServiceClient) Charge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MockPayService_Charge_FullMethodName, in, opts...)
}

func (c *MockPayServiceClient) Refund(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MockPayService_Refund_FullMethodName, in, opts...)
}

func (c *MockPayServiceClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MockPayService_Ping_FullMethodName, in, opts...)
}
