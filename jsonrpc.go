// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
)

const jsonRPCUserAgent = "lux-rpc/jsonrpc"

// jsonRPCTransport posts every call to one URI as {"method":[arg, ...]}.
type jsonRPCTransport struct {
	*httpExchange
	uri string
}

// NewJSONRPCClient returns a client posting every call to uri. The body has
// a single key, the method name, mapped to the arguments in declared order.
// Wire parameter names are validated but not sent.
func NewJSONRPCClient(uri string, opts ...Option) (*Client, error) {
	return dialJSONRPC(context.Background(), uri, newOptions(opts))
}

func dialJSONRPC(_ context.Context, uri string, o *options) (*Client, error) {
	uri, err := checkBaseURI(uri)
	if err != nil {
		return nil, err
	}
	t := &jsonRPCTransport{
		httpExchange: newHTTPExchange(o, jsonRPCUserAgent),
		uri:          uri,
	}
	return newClient(TransportJSONRPC, uri, t, o), nil
}

func (t *jsonRPCTransport) Call(ctx context.Context, call *Call) ([]byte, error) {
	return t.postJSON(ctx, call, t.uri, encodePositional(call.Method.Name, call.Params.Values()))
}
