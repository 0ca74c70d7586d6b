package mapsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "regionmap.v1.MapService"

// MapServiceServer is the server API for the map service. Payloads are
// google.protobuf.Struct values holding the JSON form of the request and
// response types in this package.
type MapServiceServer interface {
	Notify(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetHover(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PanelChange(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	CheckboxToggle(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Frame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Tree(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes MapService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MapServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Notify", newStruct, MapServiceServer.Notify),
		unary("Apply", newStruct, MapServiceServer.Apply),
		unary("SetHover", newStruct, MapServiceServer.SetHover),
		unary("PanelChange", newStruct, MapServiceServer.PanelChange),
		unary("CheckboxToggle", newStruct, MapServiceServer.CheckboxToggle),
		unary("Frame", newEmpty, MapServiceServer.Frame),
		unary("Tree", newEmpty, MapServiceServer.Tree),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "regionmap/v1/map_service.proto",
}

// RegisterMapServiceServer registers srv on s.
func RegisterMapServiceServer(s grpc.ServiceRegistrar, srv MapServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary[Req, Resp proto.Message](
	name string,
	newReq func() Req,
	call func(MapServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	full := fullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MapServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(MapServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
