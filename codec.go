// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"bytes"
	"encoding/json"
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

// Codec converts between Go values and JSON value trees.
type Codec interface {
	// Encode renders v as a JSON value.
	Encode(v any) (json.RawMessage, error)
	// Decode stores the JSON value in data into the value pointed to by v.
	Decode(data []byte, v any) error
}

// JSONCodec is the default Codec. Byte slices travel as base64 strings and
// nil values as null.
type JSONCodec struct {
	api jsoniter.API
}

// NewJSONCodec returns a codec compatible with encoding/json semantics.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (c *JSONCodec) Encode(v any) (json.RawMessage, error) {
	return c.api.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return c.api.Unmarshal(data, v)
}

// defaultCodec is used when no codec is specified
var defaultCodec Codec = NewJSONCodec()

var nullJSON = []byte("null")

// decodeAs decodes data into a fresh value of type t. Interface types are
// decoded into a generic value that must implement t.
func decodeAs(c Codec, data []byte, t reflect.Type) (reflect.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		data = nullJSON
	}
	if t.Kind() != reflect.Interface {
		ptr := reflect.New(t)
		if err := c.Decode(data, ptr.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	var generic any
	if err := c.Decode(data, &generic); err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(t).Elem()
	if generic == nil {
		return out, nil
	}
	gv := reflect.ValueOf(generic)
	if !gv.Type().Implements(t) {
		return reflect.Value{}, &typeMismatchError{got: gv.Type(), want: t}
	}
	out.Set(gv)
	return out, nil
}

type typeMismatchError struct {
	got, want reflect.Type
}

func (e *typeMismatchError) Error() string {
	return e.got.String() + " is not assignable to " + e.want.String()
}
