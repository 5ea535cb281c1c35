// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/luxfi/rpcproxy"
	"github.com/luxfi/rpcproxy/discovery"
)

const zkSessionTimeout = 10 * time.Second

type callFlags struct {
	method string
	path   string
	params []string
}

func (c *cli) newCallCmd() *cobra.Command {
	f := &callFlags{}
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Invoke one remote method and print its JSON reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runCall(cmd.Context(), f)
		},
	}
	flags := cmd.Flags()
	flags.String("url", "", "base URI or address of the remote service")
	flags.String("transport", "rest", "transport: "+strings.Join(rpcproxy.AvailableTransports(), ", "))
	flags.String("timeout", "", "per-call timeout, e.g. 5s")
	flags.String("user-agent", "", "User-Agent header of HTTP transports")
	flags.String("service", "", "discover the URL of namespace:name instead of --url")
	flags.StringSlice("etcd", nil, "etcd endpoints used with --service")
	flags.StringSlice("zookeeper", nil, "ZooKeeper servers used with --service")
	flags.StringVar(&f.method, "method", "", "remote method name")
	flags.StringVar(&f.path, "path", "", "endpoint path or wire name override")
	flags.StringArrayVarP(&f.params, "param", "p", nil, "named argument as name=JSON, repeatable")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

// parseParams splits name=JSON pairs into the declared parameters and their
// values, keeping their order.
func parseParams(pairs []string) ([]rpcproxy.Param, []any, error) {
	params := make([]rpcproxy.Param, 0, len(pairs))
	args := make([]any, 0, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, nil, errors.Errorf("invalid parameter %q, want name=JSON", pair)
		}
		if !json.Valid([]byte(raw)) {
			return nil, nil, errors.Errorf("parameter %s is not valid JSON: %s", name, raw)
		}
		params = append(params, rpcproxy.Param{Name: name})
		args = append(args, json.RawMessage(raw))
	}
	return params, args, nil
}

func (c *cli) target(ctx context.Context) (string, error) {
	if c.cfg.Service == "" {
		if c.cfg.URL == "" {
			return "", errors.New("one of --url or --service is required")
		}
		return c.cfg.URL, nil
	}
	ref, err := discovery.ParseRef(c.cfg.Service)
	if err != nil {
		return "", err
	}
	reg, err := c.openRegistry()
	if err != nil {
		return "", err
	}
	defer reg.Close()
	return discovery.BaseURI(ctx, reg, ref, c.balancer)
}

// registry connects to the configured etcd or ZooKeeper ensemble.
func (c *cli) registry() (discovery.Registry, error) {
	switch {
	case len(c.cfg.Etcd) > 0 && len(c.cfg.ZooKeeper) > 0:
		return nil, errors.New("--etcd and --zookeeper are mutually exclusive")
	case len(c.cfg.Etcd) > 0:
		return discovery.NewEtcd(c.cfg.Etcd, discovery.WithLogger(c.logger))
	case len(c.cfg.ZooKeeper) > 0:
		return discovery.NewZooKeeper(c.cfg.ZooKeeper, zkSessionTimeout, discovery.WithLogger(c.logger))
	default:
		return nil, errors.New("--service requires --etcd or --zookeeper")
	}
}

func (c *cli) runCall(ctx context.Context, f *callFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	params, args, err := parseParams(f.params)
	if err != nil {
		return err
	}
	timeout, err := c.cfg.timeout()
	if err != nil {
		return err
	}
	resolver, err := resolverFor(c.cfg.Resolver)
	if err != nil {
		return err
	}
	addr, err := c.target(ctx)
	if err != nil {
		return err
	}

	opts := []rpcproxy.Option{
		rpcproxy.WithTransport(c.cfg.Transport),
		rpcproxy.WithEndpointResolver(resolver),
		rpcproxy.WithLogger(c.logger),
		rpcproxy.WithMiddleware(rpcproxy.LoggingMiddleware(c.logger)),
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, rpcproxy.WithUserAgent(c.cfg.UserAgent))
	}
	client, err := rpcproxy.Dial(ctx, addr, opts...)
	if err != nil {
		return err
	}
	defer client.Close()

	m := &rpcproxy.Method{Name: f.method, Params: params}
	if f.path != "" || timeout > 0 {
		m.Mapping = &rpcproxy.RequestMapping{Path: f.path, Timeout: timeout}
	}

	var reply json.RawMessage
	err = client.Invoke(ctx, m, args, &reply)
	var remote *rpcproxy.RemoteCallError
	if errors.As(err, &remote) {
		return errors.New(fmt.Sprintf("%+v", remote))
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(reply))
	return err
}
