// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// config is the rpcctl configuration file. Flags given on the command line
// take precedence.
type config struct {
	URL       string   `yaml:"url"`
	Transport string   `yaml:"transport"`
	Resolver  string   `yaml:"resolver"`
	Timeout   string   `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
	LogLevel  string   `yaml:"log_level"`
	Service   string   `yaml:"service"`
	Etcd      []string `yaml:"etcd"`
	ZooKeeper []string `yaml:"zookeeper"`
}

func defaultConfig() *config {
	return &config{
		Transport: "rest",
		Resolver:  "identity",
		LogLevel:  "warn",
	}
}

func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// merge copies every flag set on the command line over the file values.
func (c *config) merge(flags *pflag.FlagSet) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("url", &c.URL)
	str("transport", &c.Transport)
	str("resolver", &c.Resolver)
	str("timeout", &c.Timeout)
	str("user-agent", &c.UserAgent)
	str("log-level", &c.LogLevel)
	str("service", &c.Service)
	if flags.Changed("etcd") {
		c.Etcd, _ = flags.GetStringSlice("etcd")
	}
	if flags.Changed("zookeeper") {
		c.ZooKeeper, _ = flags.GetStringSlice("zookeeper")
	}
}

func (c *config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid timeout %q", c.Timeout)
	}
	return d, nil
}
