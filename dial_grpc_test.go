//go:build grpc

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startGRPCServer(t *testing.T) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(
		grpc.ForceServerCodec(rawJSONCodec{}),
		grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
			method, _ := grpc.MethodFromServerStream(stream)
			var req json.RawMessage
			if err := stream.RecvMsg(&req); err != nil {
				return err
			}
			switch method {
			case "/calc.Calc/add":
				var args struct{ A, B int }
				if err := json.Unmarshal(req, &args); err != nil {
					return status.Error(codes.InvalidArgument, err.Error())
				}
				return stream.SendMsg(json.RawMessage(mustEncode(t, args.A+args.B)))
			default:
				return status.Error(codes.NotFound, "no such method\n\tat calc.Calc.dispatch(calc.go:9)")
			}
		}),
	)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis
}

func mustEncode(t *testing.T, v any) []byte {
	data, err := defaultCodec.Encode(v)
	require.NoError(t, err)
	return data
}

func TestGRPCTransport(t *testing.T) {
	require := require.New(t)
	lis := startGRPCServer(t)

	c, err := Dial(context.Background(), "passthrough:///bufnet",
		WithTransport(TransportGRPC),
		WithGRPCService("calc.Calc"),
		WithGRPCDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})),
	)
	require.NoError(err)
	defer c.Close()

	add := &Method{Name: "add", Params: []Param{{Name: "a"}, {Name: "b"}}}
	sum, err := CallAs[int](context.Background(), c, add, 20, 22)
	require.NoError(err)
	require.Equal(42, sum)

	err = c.Invoke(context.Background(), &Method{Name: "missing"}, nil, nil)
	var remote *RemoteCallError
	require.ErrorAs(err, &remote)
	require.Equal(int(codes.NotFound), remote.Code)
	require.Equal("no such method", remote.Message)
	require.Len(remote.Frames, 1)
}

func TestGRPCFullMethod(t *testing.T) {
	tr := &grpcTransport{service: "svc.S"}
	require.Equal(t, "/svc.S/get", tr.fullMethod(&Method{Name: "get"}))
	require.Equal(t, "/other.O/Get", tr.fullMethod(&Method{Name: "get", Mapping: &RequestMapping{Path: "/other.O/Get"}}))
}
