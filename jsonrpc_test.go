// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONRPCPositionalBody(t *testing.T) {
	require := require.New(t)
	rec := &recorder{body: `5`}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, err := NewJSONRPCClient(srv.URL + "/rpc")
	require.NoError(err)
	defer c.Close()

	add := &Method{Name: "add", Params: []Param{{Name: "b", WireName: "second"}, {Name: "a"}}}
	sum, err := CallAs[int](context.Background(), c, add, 2, 3)
	require.NoError(err)
	require.Equal(5, sum)

	// A path mapping does not move JSON-RPC-style calls.
	reset := &Method{Name: "reset", Mapping: &RequestMapping{Path: "other"}}
	require.NoError(c.Invoke(context.Background(), reset, nil, nil))

	reqs := rec.all()
	require.Len(reqs, 2)
	require.Equal(`{"add":[2,3]}`, reqs[0].Body)
	require.Equal(`{"reset":[]}`, reqs[1].Body)
	for _, r := range reqs {
		require.Equal(http.MethodPost, r.Method)
		require.Equal("/rpc", r.Path)
		require.Equal(jsonRPCUserAgent, r.Header.Get("User-Agent"))
	}
}

func TestJSONRPCValidatesWireNames(t *testing.T) {
	require := require.New(t)
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, err := NewJSONRPCClient(srv.URL)
	require.NoError(err)
	defer c.Close()

	m := &Method{Name: "add", Params: []Param{{Name: "a"}, {Name: "b", WireName: "a"}}}
	err = c.Invoke(context.Background(), m, []any{1, 2}, nil)
	var cfgErr *ConfigError
	require.ErrorAs(err, &cfgErr)
	require.Empty(rec.all())
}

func TestJSONRPCRemoteError(t *testing.T) {
	require := require.New(t)
	srv := httptest.NewServer(&recorder{
		status: http.StatusBadRequest,
		body:   "Invalid argument\n\tat Calc.div(Native Method)",
	})
	defer srv.Close()

	c, err := NewJSONRPCClient(srv.URL)
	require.NoError(err)
	defer c.Close()

	err = c.Invoke(context.Background(), &Method{Name: "div"}, nil, nil)
	var remote *RemoteCallError
	require.ErrorAs(err, &remote)
	require.Equal("Invalid argument", remote.Message)
	require.Equal([]Frame{{Type: "Calc", Method: "div", Source: "Native Method", Line: UnknownLine}}, remote.Frames)
}
