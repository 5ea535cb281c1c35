// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EndpointResolver maps a method name to the URL path segment of a REST call.
// Implementations must be pure.
type EndpointResolver interface {
	Endpoint(method string) string
}

// EndpointResolverFunc is a function adapter for EndpointResolver
type EndpointResolverFunc func(method string) string

func (f EndpointResolverFunc) Endpoint(method string) string {
	return f(method)
}

// IdentityResolver uses the method name verbatim.
var IdentityResolver EndpointResolver = EndpointResolverFunc(func(method string) string {
	return method
})

// WordSplitResolver splits a camel-case method name into lower-case words
// and moves the leading verb to the end, so getUserProfile becomes
// user/profile/get.
type WordSplitResolver struct{}

func (WordSplitResolver) Endpoint(method string) string {
	words := splitWords(method)
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	rotated := append(words[1:len(words):len(words)], words[0])
	return strings.Join(rotated, "/")
}

func splitWords(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > start && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		words = append(words, s[start:])
	}
	return words
}

// NewCachedResolver memoizes up to size resolutions of next.
func NewCachedResolver(next EndpointResolver, size int) (EndpointResolver, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &cachedResolver{next: next, cache: cache}, nil
}

type cachedResolver struct {
	next  EndpointResolver
	cache *lru.Cache[string, string]
}

func (r *cachedResolver) Endpoint(method string) string {
	if endpoint, ok := r.cache.Get(method); ok {
		return endpoint
	}
	endpoint := r.next.Endpoint(method)
	r.cache.Add(method, endpoint)
	return endpoint
}
