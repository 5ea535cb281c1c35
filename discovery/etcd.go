// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package discovery

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Etcd keeps instances under /lux-rpc/<namespace>/<name>/<uri> with a lease,
// so entries of a crashed owner expire on their own.
type Etcd struct {
	client *clientv3.Client
	ttl    int64
	logger hclog.Logger

	mu     sync.Mutex
	leases map[string]registration
}

type registration struct {
	lease clientv3.LeaseID
	stop  context.CancelFunc
}

// NewEtcd connects to the given etcd endpoints.
func NewEtcd(endpoints []string, opts ...Option) (*Etcd, error) {
	cfg := newConfig(opts)
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: cfg.dialTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create etcd client")
	}
	ttl := int64(cfg.ttl.Seconds())
	if ttl < 1 {
		ttl = 1
	}
	return &Etcd{
		client: c,
		ttl:    ttl,
		logger: cfg.logger.Named("etcd"),
		leases: make(map[string]registration),
	}, nil
}

// Register stores inst and keeps its lease alive until Deregister or Close.
func (r *Etcd) Register(ctx context.Context, ref Ref, inst Instance) error {
	lease, err := r.client.Grant(ctx, r.ttl)
	if err != nil {
		return errors.Wrap(err, "failed to grant lease")
	}
	val, err := json.Marshal(inst)
	if err != nil {
		return errors.Wrap(err, "failed to encode instance")
	}

	key := instancePath(ref, inst.URI)
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return errors.Wrapf(err, "failed to put %s", key)
	}

	keepCtx, stop := context.WithCancel(context.Background())
	ch, err := r.client.KeepAlive(keepCtx, lease.ID)
	if err != nil {
		stop()
		return errors.Wrap(err, "failed to keep lease alive")
	}
	// drain keep-alive responses
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keep-alive stopped", "key", key)
	}()

	r.mu.Lock()
	if prev, ok := r.leases[key]; ok {
		prev.stop()
	}
	r.leases[key] = registration{lease: lease.ID, stop: stop}
	r.mu.Unlock()

	r.logger.Info("registered instance", "service", ref.String(), "uri", inst.URI)
	return nil
}

// Deregister removes the instance at uri.
func (r *Etcd) Deregister(ctx context.Context, ref Ref, uri string) error {
	key := instancePath(ref, uri)
	r.mu.Lock()
	reg, ok := r.leases[key]
	delete(r.leases, key)
	r.mu.Unlock()

	if ok {
		reg.stop()
		if _, err := r.client.Revoke(ctx, reg.lease); err != nil {
			r.logger.Warn("failed to revoke lease", "key", key, "error", err)
		}
	}
	if _, err := r.client.Delete(ctx, key); err != nil {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}

// Discover returns every registered instance of ref. Malformed entries are skipped.
func (r *Etcd) Discover(ctx context.Context, ref Ref) ([]Instance, error) {
	prefix := ref.path() + "/"
	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", prefix)
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst Instance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			r.logger.Warn("skipping malformed instance", "key", string(kv.Key), "error", err)
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// Close stops every keep-alive and closes the client. Leases expire after
// their TTL.
func (r *Etcd) Close() error {
	r.mu.Lock()
	for key, reg := range r.leases {
		reg.stop()
		delete(r.leases, key)
	}
	r.mu.Unlock()
	return r.client.Close()
}
