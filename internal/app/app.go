/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package app assembles registry clients and resolvers from CLI configuration.
package app

import (
	"time"

	"github.com/spf13/viper"

	"bennypowers.dev/modcdn/analyze"
	"bennypowers.dev/modcdn/analyze/treesitter"
	"bennypowers.dev/modcdn/cdn"
	"bennypowers.dev/modcdn/resolve"
)

// Config holds the settings shared by every command.
type Config struct {
	// Registry is a mirror name or an http(s) base URL.
	Registry    string
	Attempts    int
	Delay       time.Duration
	Concurrency int
	// SizeLimit bounds analyzed source files in bytes. Zero or less
	// disables the bound.
	SizeLimit int
	Exclude   []string
	// Fetcher replaces the HTTP transport when set.
	Fetcher cdn.Fetcher
}

// DefaultConfig returns the defaults used when no flag is given.
func DefaultConfig() Config {
	return Config{
		Registry:    cdn.DefaultMirror.Name,
		Attempts:    cdn.DefaultAttempts,
		Delay:       cdn.DefaultDelay,
		Concurrency: 1,
		SizeLimit:   analyze.DefaultSizeLimit,
	}
}

// ConfigFromViper reads the persistent settings bound by the root command.
func ConfigFromViper() Config {
	cfg := DefaultConfig()
	if v := viper.GetString("registry"); v != "" {
		cfg.Registry = v
	}
	if viper.IsSet("attempts") {
		cfg.Attempts = viper.GetInt("attempts")
	}
	if viper.IsSet("delay") {
		cfg.Delay = viper.GetDuration("delay")
	}
	return cfg
}

// NewRegistry builds a registry client whose transport retries according
// to cfg.
func NewRegistry(cfg Config, logger resolve.Logger) (*cdn.Registry, error) {
	baseURL, err := cdn.RegistryURL(cfg.Registry)
	if err != nil {
		return nil, err
	}

	var fetcher cdn.Fetcher = cdn.NewHTTPFetcher()
	if cfg.Fetcher != nil {
		fetcher = cfg.Fetcher
	}
	retry := cdn.NewRetryFetcher(fetcher).WithPolicy(cfg.Attempts, cfg.Delay)
	if logger != nil {
		retry = retry.WithLogger(logger)
		logger.Debug("registry %s: %d attempts, %v apart", baseURL, retry.Attempts(), retry.Delay())
	}
	return cdn.NewRegistryWithURL(retry, baseURL), nil
}

// NewManifestResolver builds a Resolver without a source analyzer. It can
// resolve manifests but not fetch modules.
func NewManifestResolver(cfg Config, logger resolve.Logger) (*resolve.Resolver, error) {
	registry, err := NewRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	resolver := resolve.New(registry, nil).WithConcurrency(cfg.Concurrency)
	if logger != nil {
		resolver = resolver.WithLogger(logger)
	}
	return resolver, nil
}

// NewResolver builds a Resolver with a tree-sitter analyzer. The returned
// function releases the parser and must be called when done.
func NewResolver(cfg Config, logger resolve.Logger) (*resolve.Resolver, func(), error) {
	registry, err := NewRegistry(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	parser, err := treesitter.New()
	if err != nil {
		return nil, nil, err
	}
	analyzer := analyze.New(parser).WithSizeLimit(cfg.SizeLimit)
	if logger != nil && analyzer.SizeLimit() <= 0 {
		logger.Debug("source size limit disabled")
	}

	resolver := resolve.New(registry, analyzer).WithConcurrency(cfg.Concurrency)
	if logger != nil {
		resolver = resolver.WithLogger(logger)
	}
	if len(cfg.Exclude) > 0 {
		resolver, err = resolver.WithExclude(cfg.Exclude...)
		if err != nil {
			parser.Close()
			return nil, nil, err
		}
	}
	return resolver, parser.Close, nil
}
