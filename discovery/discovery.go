// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package discovery locates the base URI of a remote service through a
// service registry. Services are named by a short reference of the form
// namespace:name.
package discovery

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/luxfi/rpcproxy"
)

// BasePath is the root under which every registry keeps its instances.
const BasePath = "/lux-rpc"

// ErrNoInstances is returned when a service has no registered instance.
var ErrNoInstances = errors.New("discovery: no instances available")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ref names a registered service.
type Ref struct {
	Namespace string
	Name      string
}

// ParseRef parses the short form namespace:name.
func ParseRef(s string) (Ref, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return Ref{}, &rpcproxy.ConfigError{
			Subject: "service " + s,
			Reason:  "its reference must be in the form namespace:name",
		}
	}
	return Ref{Namespace: parts[0], Name: parts[1]}, nil
}

func (r Ref) String() string {
	return r.Namespace + ":" + r.Name
}

// path is the registry node holding the instances of r.
func (r Ref) path() string {
	return BasePath + "/" + r.Namespace + "/" + r.Name
}

func instancePath(ref Ref, uri string) string {
	return ref.path() + "/" + url.PathEscape(uri)
}

// Instance is one reachable endpoint of a service.
type Instance struct {
	URI    string `json:"uri"`
	Weight int    `json:"weight,omitempty"`
}

// Registry stores service instances.
type Registry interface {
	Register(ctx context.Context, ref Ref, inst Instance) error
	Deregister(ctx context.Context, ref Ref, uri string) error
	Discover(ctx context.Context, ref Ref) ([]Instance, error)
	Close() error
}

// Balancer picks one instance per lookup.
type Balancer interface {
	Pick(instances []Instance) (Instance, error)
}

// RoundRobin cycles through the instances in order. The zero value is ready
// to use.
type RoundRobin struct {
	next atomic.Uint64
}

func (b *RoundRobin) Pick(instances []Instance) (Instance, error) {
	if len(instances) == 0 {
		return Instance{}, ErrNoInstances
	}
	i := b.next.Add(1) - 1
	return instances[i%uint64(len(instances))], nil
}

// BaseURI discovers the instances of ref and picks one. A nil balancer takes
// the first instance.
func BaseURI(ctx context.Context, reg Registry, ref Ref, b Balancer) (string, error) {
	instances, err := reg.Discover(ctx, ref)
	if err != nil {
		return "", errors.Wrapf(err, "failed to discover %s", ref)
	}
	if len(instances) == 0 {
		return "", errors.Wrapf(ErrNoInstances, "service %s", ref)
	}
	if b == nil {
		return instances[0].URI, nil
	}
	inst, err := b.Pick(instances)
	if err != nil {
		return "", err
	}
	return inst.URI, nil
}

// Option configures a registry.
type Option func(*config)

type config struct {
	ttl         time.Duration
	dialTimeout time.Duration
	logger      hclog.Logger
}

func newConfig(opts []Option) *config {
	c := &config{
		ttl:         10 * time.Second,
		dialTimeout: 5 * time.Second,
		logger:      hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTTL sets how long a registration outlives its owner. Only etcd uses it.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithDialTimeout bounds connecting to the registry.
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) { c.dialTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
