// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWordSplitResolver(t *testing.T) {
	tests := map[string]string{
		"getUserProfile": "user/profile/get",
		"list":           "list",
		"deleteItem":     "item/delete",
		"":               "",
		"GetAll":         "all/get",
	}
	for in, want := range tests {
		require.Equal(t, want, WordSplitResolver{}.Endpoint(in), in)
	}
}

func TestIdentityResolver(t *testing.T) {
	require.Equal(t, "getUserProfile", IdentityResolver.Endpoint("getUserProfile"))
}

func TestCachedResolver(t *testing.T) {
	require := require.New(t)
	calls := 0
	r, err := NewCachedResolver(EndpointResolverFunc(func(method string) string {
		calls++
		return WordSplitResolver{}.Endpoint(method)
	}), 2)
	require.NoError(err)

	require.Equal("user/get", r.Endpoint("getUser"))
	require.Equal("user/get", r.Endpoint("getUser"))
	require.Equal(1, calls)

	r.Endpoint("a")
	r.Endpoint("b")
	require.Equal("user/get", r.Endpoint("getUser"))
	require.Equal(4, calls)

	_, err = NewCachedResolver(IdentityResolver, 0)
	require.Error(err)
}
