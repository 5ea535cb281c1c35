// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RequestMapping is the per-method wire configuration. A nil mapping means
// defaults everywhere.
type RequestMapping struct {
	// Path overrides the URL path of REST calls and the wire name of
	// name-addressed transports.
	Path string
	// Timeout bounds one exchange. Zero or negative means no explicit timeout.
	Timeout time.Duration
}

// Param is one declared parameter of a remote method.
type Param struct {
	// Name is the declared parameter name.
	Name string
	// WireName, when set, replaces Name in the request body.
	WireName string
}

// Method describes one remote-callable operation.
type Method struct {
	Name    string
	Params  []Param
	Mapping *RequestMapping
}

func (m *Method) String() string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.Name
	}
	return m.Name + "(" + strings.Join(names, ", ") + ")"
}

func (m *Method) path() string {
	if m.Mapping == nil {
		return ""
	}
	return m.Mapping.Path
}

// wireName is the name used by name-addressed transports.
func (m *Method) wireName() string {
	if p := m.path(); p != "" {
		return p
	}
	return m.Name
}

func (m *Method) timeout() time.Duration {
	if m.Mapping == nil || m.Mapping.Timeout <= 0 {
		return 0
	}
	return m.Mapping.Timeout
}

// Arg is one named, serialized argument.
type Arg struct {
	Name  string
	Value json.RawMessage
}

// Binding is the ordered argument list of one call.
type Binding []Arg

// Values returns the serialized arguments in declaration order.
func (b Binding) Values() []json.RawMessage {
	values := make([]json.RawMessage, len(b))
	for i, a := range b {
		values[i] = a.Value
	}
	return values
}

// Call is one dispatched invocation as seen by transports and middleware.
type Call struct {
	ID     string
	Method *Method
	Params Binding
}

// bindParams resolves every wire name before serializing any argument.
func bindParams(codec Codec, m *Method, args []any) (Binding, error) {
	if len(args) != len(m.Params) {
		return nil, &ConfigError{
			Subject: m.String(),
			Reason:  fmt.Sprintf("it expects %d arguments but got %d", len(m.Params), len(args)),
		}
	}

	names := make([]string, len(m.Params))
	seen := make(map[string]struct{}, len(m.Params))
	for i, p := range m.Params {
		name := p.WireName
		if name == "" {
			name = p.Name
		}
		if strings.TrimSpace(name) == "" {
			return nil, &ConfigError{Subject: m.String(), Reason: "one or more of its parameters has an empty name"}
		}
		if _, dup := seen[name]; dup {
			return nil, &ConfigError{Subject: m.String(), Reason: fmt.Sprintf("two of its parameters share the name %q", name)}
		}
		seen[name] = struct{}{}
		names[i] = name
	}

	binding := make(Binding, len(args))
	for i, arg := range args {
		value, err := codec.Encode(arg)
		if err != nil {
			return nil, &SerializationError{Method: m.Name, Position: i, Value: arg, Err: err}
		}
		binding[i] = Arg{Name: names[i], Value: value}
	}
	return binding, nil
}
