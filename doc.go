// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpcproxy turns a declared set of remote operations into a working
// network client.
//
// # Declaring a client
//
// A client interface is a struct of func fields. Bind fills each field with
// a stub that serializes the arguments, sends them through the selected
// transport and decodes the reply into the field's result type:
//
//	type Users struct {
//	    GetUserProfile func(ctx context.Context, id string) (*Profile, error) `params:"id" timeout:"5"`
//	    Rename         func(id, name string) error                            `rpc:"users/rename" params:"id,name"`
//	    Close          func() error
//	}
//
//	c, err := rpcproxy.NewRESTClient("https://api.example.com/v1",
//	    rpcproxy.WithEndpointResolver(rpcproxy.WordSplitResolver{}))
//	if err != nil {
//	    return err
//	}
//	users, err := rpcproxy.New[Users](c)
//	if err != nil {
//	    return err
//	}
//	defer users.Close()
//
//	profile, err := users.GetUserProfile(ctx, "42") // POST .../user/profile/get
//
// Hand-written adapters can skip reflection and call Invoke or CallAs directly
// with a *Method.
//
// # Transports
//
//	rest      one URL path per method, {"name":value,...} body (default)
//	jsonrpc   {"method":[value,...]} posted to one URI
//	jsonrpc2  JSON-RPC 2.0 envelope with named params
//	frame     length-prefixed frames over TCP, see Listen for the server
//	grpc      unary gRPC with JSON payloads (go build -tags grpc)
//
// # Errors
//
// Every failure is returned to the caller with a distinguishable kind:
// *ConfigError, *SerializationError, *TransportError, *RemoteCallError, or
// ErrClientTerminated once the client is closed. A remote error body in the
// form
//
//	Unexpected failure
//	    at com.example.Service.run(Service.java:42)
//
// is reconstructed into a message and a list of Frames; print it with %+v
// to see them.
package rpcproxy
