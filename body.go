// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/bytebufferpool"
)

// encodeObject renders the binding as a JSON object keeping argument order.
func encodeObject(b Binding) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteByte('{')
	for i, arg := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeKey(buf, arg.Name)
		buf.Write(valueOrNull(arg.Value))
	}
	buf.WriteByte('}')
	return append([]byte(nil), buf.B...)
}

// encodePositional renders {"name":[v1,v2,...]}.
func encodePositional(name string, values []json.RawMessage) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteByte('{')
	writeKey(buf, name)
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(valueOrNull(v))
	}
	buf.WriteString("]}")
	return append([]byte(nil), buf.B...)
}

func writeKey(buf *bytebufferpool.ByteBuffer, key string) {
	// Marshaling a string cannot fail.
	quoted, _ := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(key)
	buf.Write(quoted)
	buf.WriteByte(':')
}

func valueOrNull(v json.RawMessage) []byte {
	if len(v) == 0 {
		return nullJSON
	}
	return v
}
