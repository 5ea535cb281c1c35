// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWorkerRunsJobs(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	require := require.New(t)

	w := newWorker()
	body, err := w.run(context.Background(), func(context.Context) ([]byte, error) {
		return []byte("done"), nil
	})
	require.NoError(err)
	require.Equal("done", string(body))
	require.NoError(w.stop())

	_, err = w.run(context.Background(), func(context.Context) ([]byte, error) {
		t.Error("job ran after stop")
		return nil, nil
	})
	require.ErrorIs(err, ErrClientTerminated)
}

func TestWorkerHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	require := require.New(t)

	w := newWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := w.run(ctx, func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.ErrorIs(err, context.DeadlineExceeded)
	require.NoError(w.stop())
}
