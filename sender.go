// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/pkg/errors"
)

// Request is one outbound POST handed to a Sender.
type Request struct {
	URL    string
	Header http.Header
	Body   []byte
	// Timeout, when positive, bounds the exchange.
	Timeout time.Duration
}

// Response is the status and body returned by the peer.
type Response struct {
	StatusCode int
	Body       []byte
}

// Sender performs the network exchange for HTTP based transports. A failure
// to obtain any response is returned as an error; application level failures
// are reported through Response.StatusCode.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// HTTPSender is the default Sender, backed by net/http.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender wraps client. A nil client gets a private client with its
// own connection pool and cookie jar.
func NewHTTPSender(client *http.Client) *HTTPSender {
	if client == nil {
		jar, _ := cookiejar.New(nil)
		client = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Jar:       jar,
		}
	}
	return &HTTPSender{client: client}
}

func (s *HTTPSender) Send(ctx context.Context, req *Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	hreq.Header = req.Header.Clone()

	resp, err := s.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer CleanlyCloseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Close releases idle connections.
func (s *HTTPSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// httpExchange is shared by the transports that POST JSON over HTTP.
type httpExchange struct {
	sender    Sender
	owned     bool
	userAgent string
}

func newHTTPExchange(o *options, defaultAgent string) *httpExchange {
	ex := &httpExchange{sender: o.sender, userAgent: o.userAgent}
	if ex.sender == nil {
		ex.sender = NewHTTPSender(o.httpClient)
		ex.owned = o.httpClient == nil
	}
	if ex.userAgent == "" {
		ex.userAgent = defaultAgent
	}
	return ex
}

func (ex *httpExchange) post(ctx context.Context, call *Call, url string, body []byte) (*Response, error) {
	req := &Request{
		URL:     url,
		Header:  make(http.Header),
		Body:    body,
		Timeout: call.Method.timeout(),
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ex.userAgent)
	req.Header.Set("X-Request-Id", call.ID)

	resp, err := ex.sender.Send(ctx, req)
	if err != nil {
		return nil, wrapTransport(err, call.Method.Name, url)
	}
	return resp, nil
}

// postJSON posts body and turns any non-2xx answer into a RemoteCallError.
func (ex *httpExchange) postJSON(ctx context.Context, call *Call, url string, body []byte) ([]byte, error) {
	resp, err := ex.post(ctx, call, url, body)
	if err != nil {
		return nil, err
	}
	if !successful(resp.StatusCode) {
		rerr := ParseRemoteError(string(resp.Body))
		rerr.StatusCode = resp.StatusCode
		return nil, rerr
	}
	return resp.Body, nil
}

func (ex *httpExchange) Close() error {
	if !ex.owned {
		return nil
	}
	if c, ok := ex.sender.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func successful(status int) bool {
	return status >= 200 && status <= 299
}
