// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

var (
	ErrFrameTooLarge = errors.New("frame: message too large")
	ErrFrameInvalid  = errors.New("frame: invalid message")
)

// FrameType identifies framed messages.
type FrameType uint8

const (
	FrameRequest  FrameType = 0x01
	FrameResponse FrameType = 0x02
	FrameError    FrameType = 0x03
)

// MaxFrameSize bounds the length prefix accepted from a peer.
const MaxFrameSize = 64 * 1024 * 1024

const frameWriteTimeout = 30 * time.Second

// Requests are [4 len][1 type][4 id][2 nameLen][name][payload];
// replies are [4 len][1 type][4 id][payload].
func writeRequest(w io.Writer, id uint32, name string, payload []byte) error {
	if len(name) > math.MaxUint16 {
		return ErrFrameInvalid
	}
	msgLen := 1 + 4 + 2 + len(name) + len(payload)
	if msgLen > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(FrameRequest)
	binary.BigEndian.PutUint32(buf[5:9], id)
	binary.BigEndian.PutUint16(buf[9:11], uint16(len(name)))
	copy(buf[11:], name)
	copy(buf[11+len(name):], payload)
	_, err := w.Write(buf)
	return err
}

func writeReply(w io.Writer, typ FrameType, id uint32, payload []byte) error {
	msgLen := 1 + 4 + len(payload)
	if msgLen > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(typ)
	binary.BigEndian.PutUint32(buf[5:9], id)
	copy(buf[9:], payload)
	_, err := w.Write(buf)
	return err
}

// readFrame returns the type, id and body (everything after the id).
func readFrame(r io.Reader) (FrameType, uint32, []byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, 0, nil, err
	}
	msgLen := binary.BigEndian.Uint32(header[:])
	if msgLen > MaxFrameSize {
		return 0, 0, nil, ErrFrameTooLarge
	}
	if msgLen < 5 {
		return 0, 0, nil, ErrFrameInvalid
	}
	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return 0, 0, nil, err
	}
	return FrameType(msg[0]), binary.BigEndian.Uint32(msg[1:5]), msg[5:], nil
}

// frameTransport keeps one TCP connection with at most one request in
// flight. A connection that fails mid call is dropped and redialed by the
// next call.
type frameTransport struct {
	addr   string
	dialer net.Dialer

	mu     sync.Mutex
	conn   net.Conn
	nextID uint32
	closed bool
}

// DialFrame connects to a frame server at addr.
func DialFrame(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	return dialFrame(ctx, addr, newOptions(opts))
}

func dialFrame(ctx context.Context, addr string, o *options) (*Client, error) {
	t := &frameTransport{addr: addr}
	if _, err := t.connect(ctx); err != nil {
		return nil, &TransportError{Method: "dial", Target: addr, Err: err}
	}
	return newClient(TransportFrame, addr, t, o), nil
}

func (t *frameTransport) connect(ctx context.Context) (net.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, errors.Wrap(err, "frame dial")
	}
	t.conn = conn
	return conn, nil
}

func (t *frameTransport) drop() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}

func (t *frameTransport) Call(ctx context.Context, call *Call) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClientTerminated
	}
	name := call.Method.wireName()
	if len(name) > math.MaxUint16 {
		return nil, &ConfigError{
			Subject: call.Method.String(),
			Reason:  fmt.Sprintf("its wire name is longer than %d bytes", math.MaxUint16),
		}
	}
	payload := encodeObject(call.Params)
	if 1+4+2+len(name)+len(payload) > MaxFrameSize {
		return nil, wrapTransport(ErrFrameTooLarge, call.Method.Name, t.addr)
	}

	fail := func(err error) ([]byte, error) {
		t.drop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, wrapTransport(err, call.Method.Name, t.addr)
	}

	conn, err := t.connect(ctx)
	if err != nil {
		return fail(err)
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fail(err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	t.nextID++
	id := t.nextID
	if err := writeRequest(conn, id, name, payload); err != nil {
		return fail(err)
	}

	for {
		typ, rid, body, err := readFrame(conn)
		if err != nil {
			return fail(err)
		}
		if rid != id {
			// reply to an abandoned request
			continue
		}
		switch typ {
		case FrameResponse:
			return body, nil
		case FrameError:
			return nil, ParseRemoteError(string(body))
		default:
			return fail(ErrFrameInvalid)
		}
	}
}

func (t *frameTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.drop()
	return nil
}

// RawHandler serves one framed request. A returned error is sent to the
// caller as its text, so handlers may include "at" frame lines.
type RawHandler func(ctx context.Context, payload []byte) ([]byte, error)

// ServerOption configures a FrameServer.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger hclog.Logger
}

// WithServerLogger sets the server logger.
func WithServerLogger(l hclog.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// FrameServer serves framed requests by method name. Requests on one
// connection are handled in order.
type FrameServer struct {
	listener net.Listener
	logger   hclog.Logger

	mu       sync.RWMutex
	handlers map[string]RawHandler

	conns  sync.Map
	wg     sync.WaitGroup
	closed atomic.Bool
}

// Listen opens a frame server on addr.
func Listen(addr string, opts ...ServerOption) (*FrameServer, error) {
	o := &serverOptions{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(o)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return &FrameServer{
		listener: listener,
		logger:   o.logger,
		handlers: make(map[string]RawHandler),
	}, nil
}

// Handle registers h under name, replacing any previous handler.
func (s *FrameServer) Handle(name string, h RawHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Serve accepts connections until the server is closed or ctx is done.
func (s *FrameServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *FrameServer) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	s.conns.Store(conn, struct{}{})
	defer s.conns.Delete(conn)
	if s.closed.Load() {
		return
	}

	for {
		typ, id, body, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				s.logger.Debug("closing connection", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		if typ != FrameRequest || len(body) < 2 {
			continue
		}
		nameLen := int(binary.BigEndian.Uint16(body[0:2]))
		if len(body) < 2+nameLen {
			continue
		}
		name := string(body[2 : 2+nameLen])
		payload := body[2+nameLen:]

		reply, err := s.dispatch(ctx, name, payload)
		_ = conn.SetWriteDeadline(time.Now().Add(frameWriteTimeout))
		if err != nil {
			err = writeReply(conn, FrameError, id, []byte(err.Error()))
		} else {
			err = writeReply(conn, FrameResponse, id, reply)
			if errors.Is(err, ErrFrameTooLarge) {
				s.logger.Warn("reply too large", "method", name, "bytes", len(reply))
				err = writeReply(conn, FrameError, id, []byte(ErrFrameTooLarge.Error()))
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *FrameServer) dispatch(ctx context.Context, name string, payload []byte) ([]byte, error) {
	s.mu.RLock()
	h, ok := s.handlers[name]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown method: %s", name)
	}
	return h(ctx, payload)
}

// Close stops the listener, closes open connections and waits for their
// goroutines to exit.
func (s *FrameServer) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.listener.Close()
	s.conns.Range(func(key, _ any) bool {
		_ = key.(net.Conn).Close()
		return true
	})
	s.wg.Wait()
	return err
}

// Addr returns the listener address.
func (s *FrameServer) Addr() string {
	return s.listener.Addr().String()
}
