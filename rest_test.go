// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// recorder is an HTTP handler remembering every request it serves.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, recordedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Header: req.Header.Clone(),
		Body:   string(body),
	})
	status, reply := r.status, r.body
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply)
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func TestRESTWordSplitPath(t *testing.T) {
	require := require.New(t)
	rec := &recorder{body: `{"id":"7","name":"Grace"}`}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, err := NewRESTClient(srv.URL+"/api/", WithEndpointResolver(WordSplitResolver{}))
	require.NoError(err)
	defer c.Close()

	m := &Method{Name: "getUserProfile", Params: []Param{{Name: "id"}}}
	var got profile
	require.NoError(c.Invoke(context.Background(), m, []any{"7"}, &got))
	require.Equal(profile{ID: "7", Name: "Grace"}, got)

	reqs := rec.all()
	require.Len(reqs, 1)
	require.Equal(http.MethodPost, reqs[0].Method)
	require.Equal("/api/user/profile/get", reqs[0].Path)
	require.Equal("application/json", reqs[0].Header.Get("Content-Type"))
	require.Equal(restUserAgent, reqs[0].Header.Get("User-Agent"))
	require.JSONEq(`{"id":"7"}`, reqs[0].Body)
}

func TestRESTPathOverride(t *testing.T) {
	require := require.New(t)
	rec := &recorder{status: http.StatusNoContent}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	c, err := NewRESTClient(srv.URL + "/v1")
	require.NoError(err)
	defer c.Close()

	m := &Method{
		Name:    "remove",
		Params:  []Param{{Name: "userID", WireName: "id"}},
		Mapping: &RequestMapping{Path: "/users/remove"},
	}
	require.NoError(c.Invoke(context.Background(), m, []any{"9"}, nil))

	reqs := rec.all()
	require.Len(reqs, 1)
	require.Equal("/v1/users/remove", reqs[0].Path)
	require.JSONEq(`{"id":"9"}`, reqs[0].Body)
}

func TestRESTErrorPage(t *testing.T) {
	require := require.New(t)
	page := "<html><body>Not Found</body></html>"
	srv := httptest.NewServer(&recorder{status: http.StatusNotFound, body: page})
	defer srv.Close()

	c, err := NewRESTClient(srv.URL)
	require.NoError(err)
	defer c.Close()

	err = c.Invoke(context.Background(), &Method{Name: "missing"}, nil, nil)
	var remote *RemoteCallError
	require.ErrorAs(err, &remote)
	require.Equal(http.StatusNotFound, remote.StatusCode)
	require.Equal(page, remote.Message)
	require.Empty(remote.Frames)
}

func TestRESTTimeout(t *testing.T) {
	require := require.New(t)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewRESTClient(srv.URL)
	require.NoError(err)
	defer c.Close()

	m := &Method{Name: "slow", Mapping: &RequestMapping{Timeout: 50 * time.Millisecond}}
	err = c.Invoke(context.Background(), m, nil, nil)
	require.True(IsTimeout(err), "unexpected error: %v", err)
	require.False(c.Closed())
}

func TestRESTConnectionRefused(t *testing.T) {
	require := require.New(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewRESTClient(url)
	require.NoError(err)
	defer c.Close()

	err = c.Invoke(context.Background(), &Method{Name: "ping"}, nil, nil)
	var terr *TransportError
	require.ErrorAs(err, &terr)
}

func TestRESTRejectsBadBaseURI(t *testing.T) {
	for _, uri := range []string{"ftp://example.com", "http://", "::not a url"} {
		_, err := NewRESTClient(uri)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr, uri)
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, endpoint, want string
	}{
		{"http://h/api", "x", "http://h/api/x"},
		{"http://h/api/", "x", "http://h/api/x"},
		{"http://h/api", "/x", "http://h/api/x"},
		{"http://h/api/", "/x/y", "http://h/api/x/y"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, joinURL(tt.base, tt.endpoint))
	}
}
