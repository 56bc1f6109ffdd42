package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const SlotService_ServiceName = "bench.v1.SlotService"

const (
	SlotService_StartJob_FullMethodName  = "/bench.v1.SlotService/StartJob"
	SlotService_Status_FullMethodName    = "/bench.v1.SlotService/Status"
	SlotService_KillJob_FullMethodName   = "/bench.v1.SlotService/KillJob"
	SlotService_KillAll_FullMethodName   = "/bench.v1.SlotService/KillAll"
	SlotService_JobResult_FullMethodName = "/bench.v1.SlotService/JobResult"
)

// SlotServiceServer is the server API for SlotService. Implementations must
// embed UnimplementedSlotServiceServer.
type SlotServiceServer interface {
	StartJob(context.Context, *StartJobRequest) (*StartJobResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	KillJob(context.Context, *KillJobRequest) (*KillJobResponse, error)
	KillAll(context.Context, *KillAllRequest) (*KillAllResponse, error)
	JobResult(context.Context, *JobResultRequest) (*JobResultResponse, error)
	mustEmbedUnimplementedSlotServiceServer()
}

type UnimplementedSlotServiceServer struct{}

func (UnimplementedSlotServiceServer) StartJob(
	context.Context,
	*StartJobRequest,
) (*StartJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartJob not implemented")
}

func (UnimplementedSlotServiceServer) Status(
	context.Context,
	*StatusRequest,
) (*StatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}

func (UnimplementedSlotServiceServer) KillJob(
	context.Context,
	*KillJobRequest,
) (*KillJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method KillJob not implemented")
}

func (UnimplementedSlotServiceServer) KillAll(
	context.Context,
	*KillAllRequest,
) (*KillAllResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method KillAll not implemented")
}

func (UnimplementedSlotServiceServer) JobResult(
	context.Context,
	*JobResultRequest,
) (*JobResultResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method JobResult not implemented")
}

func (UnimplementedSlotServiceServer) mustEmbedUnimplementedSlotServiceServer() {}

func RegisterSlotServiceServer(s grpc.ServiceRegistrar, srv SlotServiceServer) {
	s.RegisterService(&SlotService_ServiceDesc, srv)
}

// unaryHandler decodes the wire message, runs the interceptor chain with it,
// and only then converts it for the server. A malformed message is therefore
// rejected after authorisation, with InvalidArgument.
func unaryHandler[In any, PIn interface {
	*In
	proto.Message
}, Req any, Resp any, Out proto.Message](
	method string,
	decode func(PIn) (Req, error),
	call func(SlotServiceServer, context.Context, Req) (Resp, error),
	encode func(Resp) (Out, error),
) grpc.MethodHandler {
	return func(
		srv any,
		ctx context.Context,
		dec func(any) error,
		interceptor grpc.UnaryServerInterceptor,
	) (any, error) {
		in := PIn(new(In))
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req any) (any, error) {
			r, err := decode(req.(PIn))
			if err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}

			resp, err := call(srv.(SlotServiceServer), ctx, r)
			if err != nil {
				return nil, err
			}

			out, err := encode(resp)
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}

			return out, nil
		}

		if interceptor == nil {
			return handler(ctx, in)
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}

		return interceptor(ctx, in, info, handler)
	}
}

func decodeEmpty[T any](*emptypb.Empty) (*T, error) {
	return new(T), nil
}

func decodeKillJob(in *wrapperspb.Int32Value) (*KillJobRequest, error) {
	return &KillJobRequest{SlotID: in.GetValue()}, nil
}

func decodeJobResult(in *wrapperspb.Int32Value) (*JobResultRequest, error) {
	return &JobResultRequest{SlotID: in.GetValue()}, nil
}

var SlotService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: SlotService_ServiceName,
	HandlerType: (*SlotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartJob",
			Handler: unaryHandler(
				SlotService_StartJob_FullMethodName,
				startJobRequestFromProto,
				SlotServiceServer.StartJob,
				(*StartJobResponse).toProto,
			),
		},
		{
			MethodName: "Status",
			Handler: unaryHandler(
				SlotService_Status_FullMethodName,
				decodeEmpty[StatusRequest],
				SlotServiceServer.Status,
				(*StatusResponse).toProto,
			),
		},
		{
			MethodName: "KillJob",
			Handler: unaryHandler(
				SlotService_KillJob_FullMethodName,
				decodeKillJob,
				SlotServiceServer.KillJob,
				empty[KillJobResponse],
			),
		},
		{
			MethodName: "KillAll",
			Handler: unaryHandler(
				SlotService_KillAll_FullMethodName,
				decodeEmpty[KillAllRequest],
				SlotServiceServer.KillAll,
				empty[KillAllResponse],
			),
		},
		{
			MethodName: "JobResult",
			Handler: unaryHandler(
				SlotService_JobResult_FullMethodName,
				decodeJobResult,
				SlotServiceServer.JobResult,
				(*JobResultResponse).toProto,
			),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// SlotServiceClient is the client API for SlotService.
type SlotServiceClient interface {
	StartJob(ctx context.Context, in *StartJobRequest, opts ...grpc.CallOption) (*StartJobResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	KillJob(ctx context.Context, in *KillJobRequest, opts ...grpc.CallOption) (*KillJobResponse, error)
	KillAll(ctx context.Context, in *KillAllRequest, opts ...grpc.CallOption) (*KillAllResponse, error)
	JobResult(ctx context.Context, in *JobResultRequest, opts ...grpc.CallOption) (*JobResultResponse, error)
}

type slotServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSlotServiceClient(cc grpc.ClientConnInterface) SlotServiceClient {
	return &slotServiceClient{cc}
}

func (c *slotServiceClient) StartJob(
	ctx context.Context,
	in *StartJobRequest,
	opts ...grpc.CallOption,
) (*StartJobResponse, error) {
	req, err := in.toProto()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out := new(wrapperspb.Int32Value)
	if err := c.cc.Invoke(ctx, SlotService_StartJob_FullMethodName, req, out, opts...); err != nil {
		return nil, err
	}

	return startJobResponseFromProto(out), nil
}

func (c *slotServiceClient) Status(
	ctx context.Context,
	in *StatusRequest,
	opts ...grpc.CallOption,
) (*StatusResponse, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SlotService_Status_FullMethodName, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}

	return statusResponseFromProto(out), nil
}

func (c *slotServiceClient) KillJob(
	ctx context.Context,
	in *KillJobRequest,
	opts ...grpc.CallOption,
) (*KillJobResponse, error) {
	req, _ := slotIDToProto(in.SlotID)

	if err := c.cc.Invoke(ctx, SlotService_KillJob_FullMethodName, req, new(emptypb.Empty), opts...); err != nil {
		return nil, err
	}

	return &KillJobResponse{}, nil
}

func (c *slotServiceClient) KillAll(
	ctx context.Context,
	in *KillAllRequest,
	opts ...grpc.CallOption,
) (*KillAllResponse, error) {
	if err := c.cc.Invoke(ctx, SlotService_KillAll_FullMethodName, &emptypb.Empty{}, new(emptypb.Empty), opts...); err != nil {
		return nil, err
	}

	return &KillAllResponse{}, nil
}

func (c *slotServiceClient) JobResult(
	ctx context.Context,
	in *JobResultRequest,
	opts ...grpc.CallOption,
) (*JobResultResponse, error) {
	req, _ := slotIDToProto(in.SlotID)

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SlotService_JobResult_FullMethodName, req, out, opts...); err != nil {
		return nil, err
	}

	return jobResultResponseFromProto(out), nil
}
