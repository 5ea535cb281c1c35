// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve METHOD...",
		Short: "Print the REST endpoint of each method name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := resolverFor(c.cfg.Resolver)
			if err != nil {
				return err
			}
			for _, method := range args {
				fmt.Fprintf(c.out, "%s\t%s\n", method, resolver.Endpoint(method))
			}
			return nil
		},
	}
}
