//go:build grpc

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func init() {
	// Register gRPC transport when build tag is enabled
	registerTransport(TransportGRPC, dialGRPC)
}

// WithGRPCService sets the service prefix of gRPC method paths.
func WithGRPCService(service string) Option {
	return func(o *options) { o.grpcService = service }
}

// WithGRPCDialOptions appends options passed to grpc.NewClient.
func WithGRPCDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) {
		for _, opt := range opts {
			o.grpcDialOpts = append(o.grpcDialOpts, opt)
		}
	}
}

// DialGRPC returns a client making unary gRPC calls with JSON payloads.
func DialGRPC(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	return dialGRPC(ctx, addr, newOptions(opts))
}

func dialGRPC(_ context.Context, addr string, o *options) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawJSONCodec{})),
	}
	for _, opt := range o.grpcDialOpts {
		dialOpts = append(dialOpts, opt.(grpc.DialOption))
	}
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, &ConfigError{Subject: "client for " + addr, Reason: err.Error()}
	}
	t := &grpcTransport{conn: conn, service: o.grpcService}
	return newClient(TransportGRPC, addr, t, o), nil
}

type grpcTransport struct {
	conn    *grpc.ClientConn
	service string
}

// fullMethod keeps wire names that already start with "/".
func (t *grpcTransport) fullMethod(m *Method) string {
	name := m.wireName()
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + t.service + "/" + name
}

func (t *grpcTransport) Call(ctx context.Context, call *Call) ([]byte, error) {
	method := t.fullMethod(call.Method)
	var reply json.RawMessage
	err := t.conn.Invoke(ctx, method, json.RawMessage(encodeObject(call.Params)), &reply)
	if err == nil {
		return reply, nil
	}

	st := status.Convert(err)
	switch st.Code() {
	case codes.DeadlineExceeded:
		return nil, wrapTransport(errors.Wrap(context.DeadlineExceeded, st.Message()), call.Method.Name, method)
	case codes.Unavailable, codes.Canceled:
		return nil, wrapTransport(err, call.Method.Name, method)
	default:
		rerr := ParseRemoteError(st.Message())
		rerr.Code = int(st.Code())
		return nil, rerr
	}
}

func (t *grpcTransport) Close() error {
	return t.conn.Close()
}

// rawJSONCodec passes pre-encoded JSON through gRPC untouched.
type rawJSONCodec struct{}

func (rawJSONCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case json.RawMessage:
		return m, nil
	case *json.RawMessage:
		return *m, nil
	default:
		return defaultCodec.Encode(v)
	}
}

func (rawJSONCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(*json.RawMessage); ok {
		*m = append((*m)[:0], data...)
		return nil
	}
	return defaultCodec.Decode(data, v)
}

func (rawJSONCodec) Name() string { return "json" }
