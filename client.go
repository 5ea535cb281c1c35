// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// Transport renders one Call on the wire and returns the raw reply body.
// Application level failures are returned as *RemoteCallError, network
// failures as *TransportError.
type Transport interface {
	Call(ctx context.Context, call *Call) ([]byte, error)
	Close() error
}

// Client is the dispatch core shared by every transport. All entry points
// are serialized: at most one call is in flight per client.
type Client struct {
	mu        sync.Mutex
	transport Transport
	invoke    Invoker
	worker    *worker
	codec     Codec
	logger    hclog.Logger
	kind      string
	target    string

	// next is the result type override for the next dispatched call.
	next   reflect.Type
	closed bool
}

// NewClient builds a client over a caller-provided transport.
func NewClient(kind, target string, t Transport, opts ...Option) *Client {
	return newClient(kind, target, t, newOptions(opts))
}

func newClient(kind, target string, t Transport, o *options) *Client {
	return &Client{
		transport: t,
		invoke:    Chain(o.middlewares()...)(t.Call),
		worker:    newWorker(),
		codec:     o.codec,
		logger:    o.logger.Named(kind),
		kind:      kind,
		target:    target,
	}
}

// Invoke calls m with args and stores the decoded reply into the value
// pointed to by reply. A nil reply discards the body.
func (c *Client) Invoke(ctx context.Context, m *Method, args []any, reply any) error {
	var declared reflect.Type
	var out reflect.Value
	if reply != nil {
		out = reflect.ValueOf(reply)
		if out.Kind() != reflect.Pointer || out.IsNil() {
			return &ConfigError{Subject: m.String(), Reason: "its reply must be a non-nil pointer"}
		}
		declared = out.Type().Elem()
	}

	v, err := c.dispatch(ctx, m, args, declared)
	if err != nil {
		return err
	}
	if v.IsValid() {
		out.Elem().Set(v)
	}
	return nil
}

// CallAs invokes m and decodes the reply as T.
func CallAs[T any](ctx context.Context, c *Client, m *Method, args ...any) (T, error) {
	var zero T
	declared := reflect.TypeOf((*T)(nil)).Elem()
	v, err := c.dispatch(ctx, m, args, declared)
	if err != nil {
		return zero, err
	}
	ptr := reflect.New(declared)
	if v.IsValid() {
		ptr.Elem().Set(v)
	}
	return *ptr.Interface().(*T), nil
}

// SetNextResultType makes the next dispatched call decode its reply as t
// instead of its declared result type. t must be assignable to the declared
// type. A second call before any dispatch replaces the first.
func (c *Client) SetNextResultType(t reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = t
}

// dispatch runs one call and returns the reply converted to the expected
// type, or an invalid Value when declared is nil.
func (c *Client) dispatch(ctx context.Context, m *Method, args []any, declared reflect.Type) (reflect.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return reflect.Value{}, errors.Wrapf(ErrClientTerminated, "unable to invoke %s", m.Name)
	}

	expected := declared
	if override := c.next; override != nil {
		c.next = nil
		if declared != nil {
			if !override.AssignableTo(declared) {
				return reflect.Value{}, &SerializationError{
					Method:   m.Name,
					Position: ResultPosition,
					Err:      &typeMismatchError{got: override, want: declared},
				}
			}
			expected = override
		}
	}

	params, err := bindParams(c.codec, m, args)
	if err != nil {
		return reflect.Value{}, err
	}

	call := &Call{ID: uuid.NewString(), Method: m, Params: params}
	if d := m.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	body, err := c.worker.run(ctx, func(ctx context.Context) ([]byte, error) {
		return c.invoke(ctx, call)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = wrapTransport(err, m.Name, c.target)
		}
		return reflect.Value{}, err
	}

	if expected == nil {
		return reflect.Value{}, nil
	}
	v, err := decodeAs(c.codec, body, expected)
	if err != nil {
		c.logger.Warn("failed to convert result", "method", m.Name, "id", call.ID, "error", err)
		return reflect.Value{}, &SerializationError{
			Method:   m.Name,
			Position: ResultPosition,
			Text:     string(body),
			Err:      err,
		}
	}
	return v, nil
}

// Close releases the transport and the send worker. Closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	werr := c.worker.stop()
	if err := c.transport.Close(); err != nil {
		return errors.Wrap(err, "failed to close transport")
	}
	c.logger.Info("client closed", "target", c.target)
	return werr
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) String() string {
	return fmt.Sprintf("%s client for %s", c.kind, c.target)
}
