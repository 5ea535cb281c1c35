// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAvailableTransports(t *testing.T) {
	require := require.New(t)
	names := AvailableTransports()
	for _, name := range []string{TransportREST, TransportJSONRPC, TransportJSONRPC2, TransportFrame} {
		require.Contains(names, name)
		require.True(HasTransport(name))
	}
	require.False(HasTransport("carrier-pigeon"))
}

func TestDialSelectsTransport(t *testing.T) {
	require := require.New(t)
	rec := &recorder{body: `"pong"`}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, err := Dial(context.Background(), srv.URL)
	require.NoError(err)
	require.Equal("rest client for "+srv.URL, c.String())
	require.NoError(c.Close())

	c, err = Dial(context.Background(), srv.URL, WithTransport(TransportJSONRPC))
	require.NoError(err)
	defer c.Close()
	got, err := CallAs[string](context.Background(), c, &Method{Name: "ping"})
	require.NoError(err)
	require.Equal("pong", got)
	require.Equal(`{"ping":[]}`, rec.all()[0].Body)
}

func TestDialUnknownTransport(t *testing.T) {
	_, err := Dial(context.Background(), "http://rpc.test", WithTransport("carrier-pigeon"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
