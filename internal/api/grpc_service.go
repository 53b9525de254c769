package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// GuardrailServiceName is the fully-qualified gRPC service name.
const GuardrailServiceName = "guardrails.v1.Guardrail"

// Guardrail method names.
const (
	MethodEvaluateArtifact     = "EvaluateArtifact"
	MethodCheckEvidence        = "CheckEvidence"
	MethodDetectBannedPatterns = "DetectBannedPatterns"
	MethodAuditScores          = "AuditScores"
	MethodAuditRun             = "AuditRun"
	MethodDetectRunDrift       = "DetectRunDrift"
	MethodHealthCheck          = "HealthCheck"
)

// GuardrailServer is the server API for the Guardrail service. Payloads are free-form
// structs whose fields follow the JSON shapes of the models package.
type GuardrailServer interface {
	EvaluateArtifact(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckEvidence(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DetectBannedPatterns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AuditScores(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AuditRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DetectRunDrift(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HealthCheck(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv GuardrailServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + GuardrailServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GuardrailServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GuardrailServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GuardrailServiceDesc describes the Guardrail service for grpc.Server registration.
var GuardrailServiceDesc = grpc.ServiceDesc{
	ServiceName: GuardrailServiceName,
	HandlerType: (*GuardrailServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodEvaluateArtifact, Handler: unaryHandler(MethodEvaluateArtifact, GuardrailServer.EvaluateArtifact)},
		{MethodName: MethodCheckEvidence, Handler: unaryHandler(MethodCheckEvidence, GuardrailServer.CheckEvidence)},
		{MethodName: MethodDetectBannedPatterns, Handler: unaryHandler(MethodDetectBannedPatterns, GuardrailServer.DetectBannedPatterns)},
		{MethodName: MethodAuditScores, Handler: unaryHandler(MethodAuditScores, GuardrailServer.AuditScores)},
		{MethodName: MethodAuditRun, Handler: unaryHandler(MethodAuditRun, GuardrailServer.AuditRun)},
		{MethodName: MethodDetectRunDrift, Handler: unaryHandler(MethodDetectRunDrift, GuardrailServer.DetectRunDrift)},
		{MethodName: MethodHealthCheck, Handler: unaryHandler(MethodHealthCheck, GuardrailServer.HealthCheck)},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterGuardrailServer registers srv on the supplied registrar.
func RegisterGuardrailServer(s grpc.ServiceRegistrar, srv GuardrailServer) {
	s.RegisterService(&GuardrailServiceDesc, srv)
}

// GuardrailClient invokes Guardrail methods over an existing connection.
type GuardrailClient struct {
	cc grpc.ClientConnInterface
}

// NewGuardrailClient wraps a client connection.
func NewGuardrailClient(cc grpc.ClientConnInterface) *GuardrailClient {
	return &GuardrailClient{cc: cc}
}

// Call invokes a unary Guardrail method by name.
func (c *GuardrailClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+GuardrailServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
