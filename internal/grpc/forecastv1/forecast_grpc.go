// Package forecastv1 holds the netforecast.v1.Forecast service description.
//
// Messages are protobuf well-known types: requests are google.protobuf.Empty or a
// google.protobuf.Struct carrying an optional numeric "limit"; every response is a
// google.protobuf.Struct mirroring the JSON snapshot served over HTTP.
package forecastv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "netforecast.v1.Forecast"

const (
	Forecast_LatestPrediction_FullMethodName = "/netforecast.v1.Forecast/LatestPrediction"
	Forecast_ModelMetrics_FullMethodName     = "/netforecast.v1.Forecast/ModelMetrics"
	Forecast_Alerts_FullMethodName           = "/netforecast.v1.Forecast/Alerts"
	Forecast_ActionLog_FullMethodName        = "/netforecast.v1.Forecast/ActionLog"
	Forecast_PendingActions_FullMethodName   = "/netforecast.v1.Forecast/PendingActions"
	Forecast_RecentTelemetry_FullMethodName  = "/netforecast.v1.Forecast/RecentTelemetry"
)

// ForecastServer is the server API for the Forecast service.
type ForecastServer interface {
	LatestPrediction(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ModelMetrics(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Alerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActionLog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PendingActions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RecentTelemetry(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedForecastServer can be embedded to have forward compatible implementations.
type UnimplementedForecastServer struct{}

func (UnimplementedForecastServer) LatestPrediction(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LatestPrediction not implemented")
}
func (UnimplementedForecastServer) ModelMetrics(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ModelMetrics not implemented")
}
func (UnimplementedForecastServer) Alerts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Alerts not implemented")
}
func (UnimplementedForecastServer) ActionLog(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ActionLog not implemented")
}
func (UnimplementedForecastServer) PendingActions(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PendingActions not implemented")
}
func (UnimplementedForecastServer) RecentTelemetry(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RecentTelemetry not implemented")
}

// RegisterForecastServer attaches srv to the registrar under ServiceName.
func RegisterForecastServer(s grpc.ServiceRegistrar, srv ForecastServer) {
	s.RegisterService(&Forecast_ServiceDesc, srv)
}

// unary builds a method handler decoding into a fresh Req and dispatching through the
// optional interceptor, the same shape protoc-gen-go-grpc emits per method.
func unary[Req proto.Message](fullMethod string, newReq func() Req, call func(ForecastServer, context.Context, Req) (*structpb.Struct, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ForecastServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ForecastServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

// Forecast_ServiceDesc is the grpc.ServiceDesc for the Forecast service.
var Forecast_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ForecastServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "LatestPrediction",
			Handler:    unary(Forecast_LatestPrediction_FullMethodName, newEmpty, ForecastServer.LatestPrediction),
		},
		{
			MethodName: "ModelMetrics",
			Handler:    unary(Forecast_ModelMetrics_FullMethodName, newEmpty, ForecastServer.ModelMetrics),
		},
		{
			MethodName: "Alerts",
			Handler:    unary(Forecast_Alerts_FullMethodName, newStruct, ForecastServer.Alerts),
		},
		{
			MethodName: "ActionLog",
			Handler:    unary(Forecast_ActionLog_FullMethodName, newStruct, ForecastServer.ActionLog),
		},
		{
			MethodName: "PendingActions",
			Handler:    unary(Forecast_PendingActions_FullMethodName, newEmpty, ForecastServer.PendingActions),
		},
		{
			MethodName: "RecentTelemetry",
			Handler:    unary(Forecast_RecentTelemetry_FullMethodName, newStruct, ForecastServer.RecentTelemetry),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netforecast/v1/forecast.proto",
}

// ForecastClient is the client API for the Forecast service.
type ForecastClient interface {
	LatestPrediction(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ModelMetrics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Alerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ActionLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PendingActions(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	RecentTelemetry(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type forecastClient struct {
	cc grpc.ClientConnInterface
}

// NewForecastClient wraps a client connection.
func NewForecastClient(cc grpc.ClientConnInterface) ForecastClient {
	return &forecastClient{cc: cc}
}

func (c *forecastClient) invoke(ctx context.Context, method string, in proto.Message, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *forecastClient) LatestPrediction(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Forecast_LatestPrediction_FullMethodName, in, opts)
}

func (c *forecastClient) ModelMetrics(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Forecast_ModelMetrics_FullMethodName, in, opts)
}

func (c *forecastClient) Alerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Forecast_Alerts_FullMethodName, in, opts)
}

func (c *forecastClient) ActionLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Forecast_ActionLog_FullMethodName, in, opts)
}

func (c *forecastClient) PendingActions(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Forecast_PendingActions_FullMethodName, in, opts)
}

func (c *forecastClient) RecentTelemetry(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Forecast_RecentTelemetry_FullMethodName, in, opts)
}
