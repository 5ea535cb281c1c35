// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"sort"
	"sync"
)

// Transport names accepted by WithTransport.
const (
	TransportREST     = "rest"     // one path per method, named arguments
	TransportJSONRPC  = "jsonrpc"  // {"method":[args...]} to one URI
	TransportJSONRPC2 = "jsonrpc2" // JSON-RPC 2.0 envelope
	TransportFrame    = "frame"    // length-prefixed frames over TCP
	TransportGRPC     = "grpc"     // requires build tag
)

// DefaultTransport is the transport used by Dial when none is selected.
const DefaultTransport = TransportREST

type dialFunc func(ctx context.Context, addr string, o *options) (*Client, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]dialFunc{
		TransportREST:     dialREST,
		TransportJSONRPC:  dialJSONRPC,
		TransportJSONRPC2: dialJSONRPC2,
		TransportFrame:    dialFrame,
	}
)

// registerTransport registers a new transport (used by build tags)
func registerTransport(name string, dial dialFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = dial
}

// AvailableTransports returns the registered transport names, sorted.
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	_, ok := transports[name]
	return ok
}

func lookupTransport(name string) (dialFunc, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	dial, ok := transports[name]
	return dial, ok
}
