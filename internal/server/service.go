// Service descriptor for the versionstore gRPC API.
// Messages are google.protobuf.Struct values so no generated code is needed.
package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "versionstore.v1.VersionStore"

// VersionStoreServer is the server API for the versionstore service
type VersionStoreServer interface {
	RegisterUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EditDocument(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBranch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwitchBranch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Commit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Merge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveConflict(context.Context, *structpb.Struct) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Checkout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Lock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Unlock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LockStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Branches(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(VersionStoreServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VersionStoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(VersionStoreServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the versionstore service for grpc.Server
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VersionStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc("RegisterUser", VersionStoreServer.RegisterUser),
		methodDesc("CreateDocument", VersionStoreServer.CreateDocument),
		methodDesc("GetDocument", VersionStoreServer.GetDocument),
		methodDesc("EditDocument", VersionStoreServer.EditDocument),
		methodDesc("CreateBranch", VersionStoreServer.CreateBranch),
		methodDesc("SwitchBranch", VersionStoreServer.SwitchBranch),
		methodDesc("Commit", VersionStoreServer.Commit),
		methodDesc("Merge", VersionStoreServer.Merge),
		methodDesc("ResolveConflict", VersionStoreServer.ResolveConflict),
		methodDesc("History", VersionStoreServer.History),
		methodDesc("Checkout", VersionStoreServer.Checkout),
		methodDesc("Lock", VersionStoreServer.Lock),
		methodDesc("Unlock", VersionStoreServer.Unlock),
		methodDesc("LockStatus", VersionStoreServer.LockStatus),
		methodDesc("Branches", VersionStoreServer.Branches),
		methodDesc("Health", VersionStoreServer.Health),
		methodDesc("Stats", VersionStoreServer.Stats),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterVersionStoreServer registers srv on a gRPC server
func RegisterVersionStoreServer(s grpc.ServiceRegistrar, srv VersionStoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ========== Field helpers ==========

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func intField(req *structpb.Struct, name string) int {
	return int(req.GetFields()[name].GetNumberValue())
}

func boolField(req *structpb.Struct, name string) bool {
	return req.GetFields()[name].GetBoolValue()
}

func stringList(req *structpb.Struct, name string) []string {
	values := req.GetFields()[name].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

// requireFields rejects requests missing any of the named string fields
func requireFields(req *structpb.Struct, names ...string) error {
	for _, name := range names {
		if stringField(req, name) == "" {
			return status.Errorf(codes.InvalidArgument, "%s is required", name)
		}
	}
	return nil
}

func reply(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
