// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Struct tags read by Bind.
const (
	TagPath    = "rpc"
	TagTimeout = "timeout"
	TagParams  = "params"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	typeType    = reflect.TypeOf((*reflect.Type)(nil)).Elem()
)

// Bind fills every exported func field of the struct pointed to by svc with
// a stub dispatching through c.
//
// A remote method field takes an optional leading context.Context followed
// by its arguments, and returns either error or (T, error):
//
//	type Users struct {
//		GetUserProfile func(ctx context.Context, id string) (*Profile, error) `params:"id" timeout:"5"`
//		Delete         func(id string) error                                  `rpc:"users/remove" params:"id=userId"`
//
//		SetNextResultType func(reflect.Type)
//		Close             func() error
//	}
//
// The wire name of a method is its field name with a lower-case first
// letter. Parameters without a params tag are named arg0, arg1 and so on.
// The fields String, SetNextResultType and Close, when they have the
// signatures above (Close may also return nothing), are served locally.
func Bind(c *Client, svc any) error {
	v := reflect.ValueOf(svc)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return &ConfigError{Subject: fmt.Sprintf("%T", svc), Reason: "it is not a pointer to a struct"}
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Type.Kind() != reflect.Func {
			continue
		}
		if fn, ok := reservedStub(c, f); ok {
			v.Field(i).Set(fn)
			continue
		}
		m, err := describe(f)
		if err != nil {
			return err
		}
		v.Field(i).Set(remoteStub(c, m, f.Type))
	}
	return nil
}

// New allocates a T and binds it to c.
func New[T any](c *Client) (*T, error) {
	svc := new(T)
	if err := Bind(c, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func reservedStub(c *Client, f reflect.StructField) (reflect.Value, bool) {
	ft := f.Type
	switch f.Name {
	case "String":
		if ft.NumIn() == 0 && ft.NumOut() == 1 && ft.Out(0).Kind() == reflect.String {
			return reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
				return []reflect.Value{reflect.ValueOf(c.String()).Convert(ft.Out(0))}
			}), true
		}
	case "SetNextResultType":
		if ft.NumIn() == 1 && ft.In(0) == typeType && ft.NumOut() == 0 {
			return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
				t, _ := in[0].Interface().(reflect.Type)
				c.SetNextResultType(t)
				return nil
			}), true
		}
	case "Close":
		if ft.NumIn() != 0 {
			break
		}
		switch {
		case ft.NumOut() == 0:
			return reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
				if err := c.Close(); err != nil {
					c.logger.Warn("failed to close client", "target", c.target, "error", err)
				}
				return nil
			}), true
		case ft.NumOut() == 1 && ft.Out(0) == errorType:
			return reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
				return []reflect.Value{errorValue(c.Close())}
			}), true
		}
	}
	return reflect.Value{}, false
}

// describe builds the Method of a remote func field from its signature and tags.
func describe(f reflect.StructField) (*Method, error) {
	ft := f.Type
	subject := f.Name
	if ft.IsVariadic() {
		return nil, &ConfigError{Subject: subject, Reason: "variadic methods are not supported"}
	}
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, &ConfigError{Subject: subject, Reason: "it must return error or (T, error)"}
	}

	argc := ft.NumIn()
	if argc > 0 && ft.In(0) == contextType {
		argc--
	}

	m := &Method{Name: lowerFirst(f.Name)}
	if tag, ok := f.Tag.Lookup(TagParams); ok {
		entries := strings.Split(tag, ",")
		if tag == "" {
			entries = nil
		}
		if len(entries) != argc {
			return nil, &ConfigError{
				Subject: subject,
				Reason:  fmt.Sprintf("its params tag names %d parameters but it takes %d", len(entries), argc),
			}
		}
		for _, e := range entries {
			name, wire, _ := strings.Cut(e, "=")
			m.Params = append(m.Params, Param{Name: strings.TrimSpace(name), WireName: strings.TrimSpace(wire)})
		}
	} else {
		for i := 0; i < argc; i++ {
			m.Params = append(m.Params, Param{Name: "arg" + strconv.Itoa(i)})
		}
	}

	path, hasPath := f.Tag.Lookup(TagPath)
	timeoutTag, hasTimeout := f.Tag.Lookup(TagTimeout)
	if hasPath || hasTimeout {
		m.Mapping = &RequestMapping{Path: path}
		if hasTimeout {
			d, err := parseTimeout(timeoutTag)
			if err != nil {
				return nil, &ConfigError{Subject: subject, Reason: err.Error()}
			}
			m.Mapping.Timeout = d
		}
	}
	return m, nil
}

// parseTimeout accepts whole seconds ("5") or a duration ("1500ms").
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("its timeout %q is neither seconds nor a duration", s)
	}
	return d, nil
}

func remoteStub(c *Client, m *Method, ft reflect.Type) reflect.Value {
	hasCtx := ft.NumIn() > 0 && ft.In(0) == contextType
	var declared reflect.Type
	if ft.NumOut() == 2 {
		declared = ft.Out(0)
	}

	return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		ctx := context.Background()
		if hasCtx {
			if v, ok := in[0].Interface().(context.Context); ok && v != nil {
				ctx = v
			}
			in = in[1:]
		}
		args := make([]any, len(in))
		for i, a := range in {
			args[i] = a.Interface()
		}

		v, err := c.dispatch(ctx, m, args, declared)
		if declared == nil {
			return []reflect.Value{errorValue(err)}
		}
		out := reflect.New(declared).Elem()
		if err == nil && v.IsValid() {
			out.Set(v)
		}
		return []reflect.Value{out, errorValue(err)}
	})
}

func errorValue(err error) reflect.Value {
	if err == nil {
		return reflect.Zero(errorType)
	}
	return reflect.ValueOf(&err).Elem()
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
