// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Invoker performs one call against a transport.
type Invoker func(ctx context.Context, call *Call) ([]byte, error)

// Middleware wraps an Invoker with extra behavior.
type Middleware func(next Invoker) Invoker

// Chain composes middlewares; the first one runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next Invoker) Invoker {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// LoggingMiddleware logs every call with its duration and outcome.
func LoggingMiddleware(logger hclog.Logger) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) ([]byte, error) {
			start := time.Now()
			body, err := next(ctx, call)
			if err != nil {
				logger.Warn("call failed", "method", call.Method.Name, "id", call.ID,
					"duration", time.Since(start), "error", err)
				return nil, err
			}
			logger.Debug("call completed", "method", call.Method.Name, "id", call.ID,
				"duration", time.Since(start), "bytes", len(body))
			return body, nil
		}
	}
}

// RateLimitMiddleware holds calls back to r per second with the given burst.
// A call whose context ends while waiting, or whose deadline comes before
// its turn, fails without being sent.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next Invoker) Invoker {
		return func(ctx context.Context, call *Call) ([]byte, error) {
			if err := limiter.Wait(ctx); err != nil {
				if ctx.Err() == nil {
					// the wait would outlast the deadline
					return nil, errors.Wrapf(context.DeadlineExceeded, "rate limit: %v", err)
				}
				return nil, errors.Wrap(err, "rate limit")
			}
			return next(ctx, call)
		}
	}
}
