package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/Laisky/laisky-vfs/internal/vfs/service"
)

const servicePrefix = "laisky.vfs.v1."

// AccountServer is implemented by service.AccountService.
type AccountServer interface {
	Login(context.Context, *service.LoginRequest) (*service.LoginResponse, error)
	Register(context.Context, *service.RegisterRequest) (*service.StatusResponse, error)
	GenerateActivationCode(context.Context, *service.GenerateActivationCodeRequest) (*service.GenerateActivationCodeResponse, error)
	ChangePassword(context.Context, *service.ChangePasswordRequest) (*service.StatusResponse, error)
	ChangeUsername(context.Context, *service.ChangeUsernameRequest) (*service.StatusResponse, error)
	DeleteAccount(context.Context, *service.DeleteAccountRequest) (*service.StatusResponse, error)
}

// ComputerServer is implemented by service.ComputerService.
type ComputerServer interface {
	GetMyComputer(context.Context, *service.GetMyComputerRequest) (*service.ComputerInfo, error)
}

// FilesystemServer is implemented by service.FilesystemService.
type FilesystemServer interface {
	CreateDirectory(context.Context, *service.CreateDirectoryRequest) (*service.CreateResponse, error)
	CreateFile(context.Context, *service.CreateFileRequest) (*service.CreateResponse, error)
	DeleteDirectory(context.Context, *service.DeleteDirectoryRequest) (*service.Empty, error)
	DeleteFile(context.Context, *service.FileRequest) (*service.Empty, error)
	RenameDirectory(context.Context, *service.RenameDirectoryRequest) (*service.Empty, error)
	RenameFile(context.Context, *service.RenameFileRequest) (*service.Empty, error)
	ListDirectories(context.Context, *service.DirectoryRequest) (*service.ListDirectoriesResponse, error)
	ListFiles(context.Context, *service.DirectoryRequest) (*service.ListFilesResponse, error)
	GetDirectoryInfo(context.Context, *service.DirectoryRequest) (*service.DirectoryInfo, error)
	GetFileInfo(context.Context, *service.FileRequest) (*service.FileInfo, error)
	ReadDataFile(context.Context, *service.FileRequest) (*service.ReadDataFileResponse, error)
	ModifyDataFile(context.Context, *service.ModifyDataFileRequest) (*service.Empty, error)
	FromIdToPath(context.Context, *service.FromIdToPathRequest) (*service.FromIdToPathResponse, error)
	FromPathToId(context.Context, *service.FromPathToIdRequest) (*service.FromPathToIdResponse, error)
}

var (
	_ AccountServer    = (*service.AccountService)(nil)
	_ ComputerServer   = (*service.ComputerService)(nil)
	_ FilesystemServer = (*service.FilesystemService)(nil)
)

// FullMethod returns the gRPC method path of svc/method.
func FullMethod(svc, method string) string {
	return "/" + servicePrefix + svc + "/" + method
}

// unary adapts a service method expression to a grpc.MethodHandler.
func unary[S, Req, Resp any](svc, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := FullMethod(svc, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, req)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			})
		},
	}
}

var accountServiceDesc = grpc.ServiceDesc{
	ServiceName: servicePrefix + "Account",
	HandlerType: (*AccountServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Account", "Login", AccountServer.Login),
		unary("Account", "Register", AccountServer.Register),
		unary("Account", "GenerateActivationCode", AccountServer.GenerateActivationCode),
		unary("Account", "ChangePassword", AccountServer.ChangePassword),
		unary("Account", "ChangeUsername", AccountServer.ChangeUsername),
		unary("Account", "DeleteAccount", AccountServer.DeleteAccount),
	},
}

var computerServiceDesc = grpc.ServiceDesc{
	ServiceName: servicePrefix + "Computer",
	HandlerType: (*ComputerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Computer", "GetMyComputer", ComputerServer.GetMyComputer),
	},
}

var filesystemServiceDesc = grpc.ServiceDesc{
	ServiceName: servicePrefix + "Filesystem",
	HandlerType: (*FilesystemServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Filesystem", "CreateDirectory", FilesystemServer.CreateDirectory),
		unary("Filesystem", "CreateFile", FilesystemServer.CreateFile),
		unary("Filesystem", "DeleteDirectory", FilesystemServer.DeleteDirectory),
		unary("Filesystem", "DeleteFile", FilesystemServer.DeleteFile),
		unary("Filesystem", "RenameDirectory", FilesystemServer.RenameDirectory),
		unary("Filesystem", "RenameFile", FilesystemServer.RenameFile),
		unary("Filesystem", "ListDirectories", FilesystemServer.ListDirectories),
		unary("Filesystem", "ListFiles", FilesystemServer.ListFiles),
		unary("Filesystem", "GetDirectoryInfo", FilesystemServer.GetDirectoryInfo),
		unary("Filesystem", "GetFileInfo", FilesystemServer.GetFileInfo),
		unary("Filesystem", "ReadDataFile", FilesystemServer.ReadDataFile),
		unary("Filesystem", "ModifyDataFile", FilesystemServer.ModifyDataFile),
		unary("Filesystem", "FromIdToPath", FilesystemServer.FromIdToPath),
		unary("Filesystem", "FromPathToId", FilesystemServer.FromPathToId),
	},
}
