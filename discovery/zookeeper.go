// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package discovery

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
)

// ZooKeeper keeps instances as ephemeral nodes under
// /lux-rpc/<namespace>/<name>, removed when the session ends.
type ZooKeeper struct {
	conn   *zk.Conn
	logger hclog.Logger
}

// NewZooKeeper connects to the given servers.
func NewZooKeeper(servers []string, sessionTimeout time.Duration, opts ...Option) (*ZooKeeper, error) {
	cfg := newConfig(opts)
	logger := cfg.logger.Named("zookeeper")
	conn, _, err := zk.Connect(servers, sessionTimeout,
		zk.WithLogger(logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to zookeeper")
	}
	return &ZooKeeper{conn: conn, logger: logger}, nil
}

// Register creates the instance node, and any missing parent, for inst.
// ZooKeeper calls are not cancellable; ctx is only checked up front.
func (r *ZooKeeper) Register(ctx context.Context, ref Ref, inst Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(inst)
	if err != nil {
		return errors.Wrap(err, "failed to encode instance")
	}
	if err := r.ensurePath(ref.path()); err != nil {
		return err
	}

	path := instancePath(ref, inst.URI)
	_, err = r.conn.Create(path, data, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if errors.Is(err, zk.ErrNodeExists) {
		_, err = r.conn.Set(path, data, -1)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	r.logger.Info("registered instance", "service", ref.String(), "uri", inst.URI)
	return nil
}

// ensurePath creates every missing persistent node of path.
func (r *ZooKeeper) ensurePath(path string) error {
	parts := strings.Split(path, "/")
	for i := 2; i <= len(parts); i++ {
		sub := strings.Join(parts[:i], "/")
		exists, _, err := r.conn.Exists(sub)
		if err != nil {
			return errors.Wrapf(err, "failed to check %s", sub)
		}
		if exists {
			continue
		}
		if _, err := r.conn.Create(sub, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return errors.Wrapf(err, "failed to create %s", sub)
		}
	}
	return nil
}

// Deregister deletes the instance node. A missing node is not an error.
func (r *ZooKeeper) Deregister(ctx context.Context, ref Ref, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := instancePath(ref, uri)
	if err := r.conn.Delete(path, -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
		return errors.Wrapf(err, "failed to delete %s", path)
	}
	return nil
}

// Discover lists the instance nodes of ref. A node without data is read
// from its name.
func (r *ZooKeeper) Discover(ctx context.Context, ref Ref) ([]Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	children, _, err := r.conn.Children(ref.path())
	if errors.Is(err, zk.ErrNoNode) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", ref.path())
	}

	instances := make([]Instance, 0, len(children))
	for _, child := range children {
		data, _, err := r.conn.Get(ref.path() + "/" + child)
		if errors.Is(err, zk.ErrNoNode) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", child)
		}
		inst, err := decodeNode(child, data)
		if err != nil {
			r.logger.Warn("skipping malformed instance", "node", child, "error", err)
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func decodeNode(name string, data []byte) (Instance, error) {
	if len(data) == 0 {
		uri, err := url.PathUnescape(name)
		if err != nil {
			return Instance{}, err
		}
		return Instance{URI: uri}, nil
	}
	var inst Instance
	err := json.Unmarshal(data, &inst)
	return inst, err
}

func (r *ZooKeeper) Close() error {
	r.conn.Close()
	return nil
}
