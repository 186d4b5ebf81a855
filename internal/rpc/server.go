// Package rpc serves the RPC surface over gRPC with a JSON codec.
package rpc

import (
	"context"
	"net"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/Laisky/laisky-vfs/internal/vfs"
	"github.com/Laisky/laisky-vfs/internal/vfs/service"
	"github.com/Laisky/laisky-vfs/library/log"
)

// NewServer returns a gRPC server with the three services registered.
func NewServer(svcs *service.Services, logger logSDK.Logger) *grpc.Server {
	if logger == nil {
		logger = log.Logger.Named("grpc")
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recoveryInterceptor(logger),
		callerInterceptor(logger),
	))
	srv.RegisterService(&accountServiceDesc, svcs.Account)
	srv.RegisterService(&computerServiceDesc, svcs.Computer)
	srv.RegisterService(&filesystemServiceDesc, svcs.Filesystem)
	return srv
}

// RunServer serves srv on addr until ctx is done.
func RunServer(ctx context.Context, addr string, srv *grpc.Server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %q", addr)
	}

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	log.Logger.Info("listening on grpc", zap.String("addr", addr))
	if err = srv.Serve(lis); err != nil {
		return errors.Wrap(err, "serve grpc")
	}
	return nil
}

// callerInterceptor attaches the bearer token and peer address to the
// context and turns service errors into statuses.
func callerInterceptor(logger logSDK.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		caller := service.Caller{}
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				caller.Token = bearerToken(vals[0])
			}
		}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			caller.Address = p.Addr.String()
		}

		start := time.Now()
		resp, err := handler(service.WithCaller(ctx, caller), req)
		logger.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err))
		if err != nil {
			return nil, toStatus(err)
		}
		return resp, nil
	}
}

func recoveryInterceptor(logger logSDK.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc handler panic",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

func bearerToken(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(GRPCCode(vfs.CodeOf(err)), vfs.PublicMessage(err))
}

// GRPCCode maps an error code to its gRPC code.
func GRPCCode(code vfs.Code) codes.Code {
	switch code {
	case vfs.CodeUnauthenticated:
		return codes.Unauthenticated
	case vfs.CodePermissionDenied:
		return codes.PermissionDenied
	case vfs.CodeInvalidArgument:
		return codes.InvalidArgument
	case vfs.CodeNotFound:
		return codes.NotFound
	case vfs.CodeAlreadyExists:
		return codes.AlreadyExists
	case vfs.CodeFailedPrecondition:
		return codes.FailedPrecondition
	case vfs.CodeDataLoss:
		return codes.DataLoss
	default:
		return codes.Internal
	}
}

// CodeFromStatus maps a gRPC status back to an error code.
func CodeFromStatus(err error) vfs.Code {
	switch status.Code(err) {
	case codes.OK:
		return ""
	case codes.Unauthenticated:
		return vfs.CodeUnauthenticated
	case codes.PermissionDenied:
		return vfs.CodePermissionDenied
	case codes.InvalidArgument:
		return vfs.CodeInvalidArgument
	case codes.NotFound:
		return vfs.CodeNotFound
	case codes.AlreadyExists:
		return vfs.CodeAlreadyExists
	case codes.FailedPrecondition:
		return vfs.CodeFailedPrecondition
	case codes.DataLoss:
		return vfs.CodeDataLoss
	default:
		return vfs.CodeInternal
	}
}
