// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"net/url"
	"strings"
)

const restUserAgent = "lux-rpc/rest"

// restTransport posts each call to its own path under a base URI, with the
// named arguments as a JSON object.
type restTransport struct {
	*httpExchange
	base     string
	resolver EndpointResolver
}

// NewRESTClient returns a client calling one URL path per method under baseURI.
// The path is the method's mapping path when set, else the resolver's output.
func NewRESTClient(baseURI string, opts ...Option) (*Client, error) {
	return dialREST(context.Background(), baseURI, newOptions(opts))
}

func dialREST(_ context.Context, baseURI string, o *options) (*Client, error) {
	base, err := checkBaseURI(baseURI)
	if err != nil {
		return nil, err
	}
	t := &restTransport{
		httpExchange: newHTTPExchange(o, restUserAgent),
		base:         base,
		resolver:     o.resolver,
	}
	return newClient(TransportREST, base, t, o), nil
}

func (t *restTransport) Call(ctx context.Context, call *Call) ([]byte, error) {
	return t.postJSON(ctx, call, t.url(call.Method), encodeObject(call.Params))
}

func (t *restTransport) url(m *Method) string {
	endpoint := m.path()
	if endpoint == "" {
		endpoint = t.resolver.Endpoint(m.Name)
	}
	return joinURL(t.base, endpoint)
}

// joinURL puts exactly one "/" between base and endpoint.
func joinURL(base, endpoint string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

func checkBaseURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ConfigError{Subject: "client for " + raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ConfigError{Subject: "client for " + raw, Reason: "its base URI is not an http or https URL"}
	}
	if u.Host == "" {
		return "", &ConfigError{Subject: "client for " + raw, Reason: "its base URI has no host"}
	}
	return raw, nil
}
