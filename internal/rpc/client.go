package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Call invokes svc/method on conn with the JSON codec. A non-empty token is
// sent as the bearer credential.
func Call[Req, Resp any](ctx context.Context, conn grpc.ClientConnInterface, svc, method, token string, req *Req) (*Resp, error) {
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}

	resp := new(Resp)
	if err := conn.Invoke(ctx, FullMethod(svc, method), req, resp, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return resp, nil
}
