// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"net/http"

	"github.com/hashicorp/go-hclog"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	codec      Codec
	resolver   EndpointResolver
	userAgent  string
	logger     hclog.Logger
	sender     Sender
	httpClient *http.Client
	middleware []Middleware
	metrics    *Metrics
	transport  string

	// rate limiting, disabled when rateLimit <= 0
	rateLimit float64
	rateBurst int

	// gRPC only
	grpcService  string
	grpcDialOpts []any
}

func newOptions(opts []Option) *options {
	o := &options{
		codec:     defaultCodec,
		resolver:  IdentityResolver,
		logger:    hclog.NewNullLogger(),
		transport: DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// middlewares returns the configured chain, outermost first.
func (o *options) middlewares() []Middleware {
	var chain []Middleware
	if o.metrics != nil {
		chain = append(chain, o.metrics.Middleware())
	}
	chain = append(chain, LoggingMiddleware(o.logger))
	if o.rateLimit > 0 {
		chain = append(chain, RateLimitMiddleware(o.rateLimit, o.rateBurst))
	}
	return append(chain, o.middleware...)
}

// WithCodec sets the value serializer.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithEndpointResolver sets the strategy mapping method names to REST paths.
func WithEndpointResolver(r EndpointResolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithUserAgent sets the User-Agent header sent by HTTP transports.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSender replaces the transmission collaborator of HTTP transports. The
// client never closes a sender it did not create.
func WithSender(s Sender) Option {
	return func(o *options) { o.sender = s }
}

// WithHTTPClient makes the default Sender use client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithMiddleware appends middlewares around every call.
func WithMiddleware(m ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, m...) }
}

// WithRateLimit limits outbound calls to r per second.
func WithRateLimit(r float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = r
		if burst < 1 {
			burst = 1
		}
		o.rateBurst = burst
	}
}

// WithMetrics records every call in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTransport selects the transport used by Dial.
func WithTransport(t string) Option {
	return func(o *options) { o.transport = t }
}
