// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/pkg/errors"
)

const jsonRPC2UserAgent = "lux-rpc/jsonrpc2"

// jsonRPC2Transport speaks JSON-RPC 2.0 with named params to a single URI.
type jsonRPC2Transport struct {
	*httpExchange
	uri string
}

// NewJSONRPC2Client returns a client sending JSON-RPC 2.0 envelopes to uri.
// The method field is the mapping path when set, else the method name.
func NewJSONRPC2Client(uri string, opts ...Option) (*Client, error) {
	return dialJSONRPC2(context.Background(), uri, newOptions(opts))
}

func dialJSONRPC2(_ context.Context, uri string, o *options) (*Client, error) {
	uri, err := checkBaseURI(uri)
	if err != nil {
		return nil, err
	}
	t := &jsonRPC2Transport{
		httpExchange: newHTTPExchange(o, jsonRPC2UserAgent),
		uri:          uri,
	}
	return newClient(TransportJSONRPC2, uri, t, o), nil
}

func (t *jsonRPC2Transport) Call(ctx context.Context, call *Call) ([]byte, error) {
	name := call.Method.wireName()
	body, err := json2.EncodeClientRequest(name, json.RawMessage(encodeObject(call.Params)))
	if err != nil {
		return nil, &SerializationError{Method: call.Method.Name, Position: RequestPosition, Err: errors.Wrap(err, "failed to encode envelope")}
	}

	resp, err := t.post(ctx, call, t.uri, body)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	err = json2.DecodeClientResponse(bytes.NewReader(resp.Body), &result)
	var rpcErr *json2.Error
	switch {
	case err == nil:
		if !successful(resp.StatusCode) {
			return nil, &RemoteCallError{StatusCode: resp.StatusCode, Message: string(resp.Body)}
		}
		return result, nil
	case errors.Is(err, json2.ErrNullResult):
		return nullJSON, nil
	case errors.As(err, &rpcErr):
		rerr := ParseRemoteError(rpcErr.Message)
		rerr.StatusCode = resp.StatusCode
		rerr.Code = int(rpcErr.Code)
		return nil, rerr
	case !successful(resp.StatusCode):
		rerr := ParseRemoteError(string(resp.Body))
		rerr.StatusCode = resp.StatusCode
		return nil, rerr
	default:
		return nil, &SerializationError{
			Method:   call.Method.Name,
			Position: ResultPosition,
			Text:     string(resp.Body),
			Err:      errors.Wrap(err, "failed to decode client response"),
		}
	}
}
