// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"strings"
)

// Dial builds a client for addr using the transport selected with
// WithTransport (REST by default). HTTP transports take a base URI, the
// frame and gRPC transports a host:port.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	o := newOptions(opts)
	dial, ok := lookupTransport(o.transport)
	if !ok {
		return nil, &ConfigError{
			Subject: "client for " + addr,
			Reason:  "transport " + o.transport + " is not one of " + strings.Join(AvailableTransports(), ", "),
		}
	}
	return dial(ctx, addr, o)
}
