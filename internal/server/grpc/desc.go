package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pwmgr.v1.VaultService"

// VaultServer is the server API of VaultService. Every request and response
// body is a google.protobuf.Struct.
type VaultServer interface {
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Setup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GeneratePassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEntries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchEntries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Backup(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// FullMethod returns the gRPC path of method, e.g. "/pwmgr.v1.VaultService/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type unaryCall func(VaultServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaultServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var vaultServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Status", VaultServer.Status),
		unaryMethod("Setup", VaultServer.Setup),
		unaryMethod("Login", VaultServer.Login),
		unaryMethod("Logout", VaultServer.Logout),
		unaryMethod("GeneratePassword", VaultServer.GeneratePassword),
		unaryMethod("ListEntries", VaultServer.ListEntries),
		unaryMethod("SearchEntries", VaultServer.SearchEntries),
		unaryMethod("GetEntry", VaultServer.GetEntry),
		unaryMethod("CreateEntry", VaultServer.CreateEntry),
		unaryMethod("UpdateEntry", VaultServer.UpdateEntry),
		unaryMethod("DeleteEntry", VaultServer.DeleteEntry),
		unaryMethod("Backup", VaultServer.Backup),
	},
	Streams: []grpc.StreamDesc{},
}

// Client calls VaultService with plain maps as bodies.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}

	return out.AsMap(), nil
}
