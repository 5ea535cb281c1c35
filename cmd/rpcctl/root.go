// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/luxfi/rpcproxy"
	"github.com/luxfi/rpcproxy/discovery"
)

type cli struct {
	out, errOut io.Writer
	configPath  string
	cfg         *config
	logger      hclog.Logger

	// balancer spreads --service calls over the discovered instances.
	balancer     discovery.Balancer
	openRegistry func() (discovery.Registry, error)
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut, balancer: &discovery.RoundRobin{}}
	c.openRegistry = c.registry
	root := &cobra.Command{
		Use:           "rpcctl",
		Short:         "Invoke remote methods over REST, JSON-RPC or framed TCP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			cfg.merge(cmd.Flags())
			c.cfg = cfg
			c.logger = hclog.New(&hclog.LoggerOptions{
				Name:   "rpcctl",
				Level:  hclog.LevelFromString(cfg.LogLevel),
				Output: errOut,
			})
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flags.String("resolver", "identity", "endpoint resolver: identity or words")

	root.AddCommand(c.newCallCmd(), c.newResolveCmd())
	return root
}

func resolverFor(name string) (rpcproxy.EndpointResolver, error) {
	switch name {
	case "", "identity":
		return rpcproxy.IdentityResolver, nil
	case "words":
		return rpcproxy.NewCachedResolver(rpcproxy.WordSplitResolver{}, 256)
	default:
		return nil, &rpcproxy.ConfigError{
			Subject: "resolver " + name,
			Reason:  "it is not one of identity, words",
		}
	}
}
