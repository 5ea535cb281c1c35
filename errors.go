// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/pkg/errors"
)

// ErrClientTerminated is returned by every call made after the client was closed.
var ErrClientTerminated = errors.New("rpc client has been terminated")

// ResultPosition is the SerializationError position used for reply conversion.
const ResultPosition = -1

// RequestPosition is the SerializationError position used when the request
// envelope around the arguments cannot be built.
const RequestPosition = -2

// ConfigError reports an invalid client or method configuration.
// It is always raised before any network activity.
type ConfigError struct {
	Subject string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unable to invoke %s because %s", e.Subject, e.Reason)
}

// SerializationError reports a failure converting an argument or a reply.
type SerializationError struct {
	Method string
	// Position is the zero-based argument index, ResultPosition or
	// RequestPosition.
	Position int
	// Value is the offending argument when encoding.
	Value any
	// Text is the offending body when decoding.
	Text string
	Err  error
}

func (e *SerializationError) Error() string {
	switch e.Position {
	case ResultPosition:
		return fmt.Sprintf("failed to convert result of %s: %v", e.Method, e.Err)
	case RequestPosition:
		return fmt.Sprintf("failed to build request of %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("failed to serialize argument %d of %s: %v", e.Position, e.Method, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// TransportError reports a network level failure: the request never produced
// an application level response.
type TransportError struct {
	Method string
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure calling %s at %s: %v", e.Method, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the exchange was abandoned because a deadline passed.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// RemoteCallError is the structured form of a failure reported by the peer.
type RemoteCallError struct {
	// StatusCode is the transport status (HTTP status) when one exists.
	StatusCode int
	// Code is the application error code, for wire conventions that carry one.
	Code    int
	Message string
	Frames  []Frame
}

func (e *RemoteCallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote call failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Format prints the reconstructed remote frames under %+v.
func (e *RemoteCallError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, e.Error())
			for _, f := range e.Frames {
				fmt.Fprintf(s, "\n\tat %s", f)
			}
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// IsTimeout reports whether err is a transport failure caused by a deadline.
func IsTimeout(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr) && terr.Timeout()
}

func wrapTransport(err error, method, target string) error {
	var terr *TransportError
	if errors.As(err, &terr) {
		return err
	}
	return &TransportError{Method: method, Target: target, Err: err}
}
