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

// Package serve provides the serve command for modcdn.
package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bennypowers.dev/modcdn/analyze"
	"bennypowers.dev/modcdn/internal/app"
	"bennypowers.dev/modcdn/internal/logging"
	"bennypowers.dev/modcdn/server"
)

// Cmd is the serve cobra command that exposes the resolver over HTTP.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve manifests and module graphs over HTTP",
	Long: `Start an HTTP service for in-browser bundlers.

Endpoints:
  POST /manifest                     body: {"name": "range", ...}
  GET  /manifest?deps=<json>
  GET  /module?name=<name>&version=<version>
  GET  /healthz

Registry failures answer 502 (404 when the package or version does not exist),
invalid input answers 400. Error bodies are {"error": "<message>"}.`,
	Example: `  # Serve on the default port
  modcdn serve

  # Serve against the public registry with parallel manifest resolution
  modcdn serve --addr 127.0.0.1:8080 --registry npmjs --concurrency 4`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().String("addr", server.DefaultAddr, "Address to listen on")
	Cmd.Flags().Int("concurrency", 1, "Number of declared dependencies resolved at once")
	Cmd.Flags().Int("size-limit", analyze.DefaultSizeLimit, "Largest source file analyzed, in bytes (0 for no limit)")
	Cmd.Flags().StringArray("exclude", nil, "Glob of archive paths to leave out of module graphs (can be repeated)")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := app.ConfigFromViper()
	var err error
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return err
	}
	if cfg.SizeLimit, err = cmd.Flags().GetInt("size-limit"); err != nil {
		return err
	}
	if cfg.Exclude, err = cmd.Flags().GetStringArray("exclude"); err != nil {
		return err
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	logger := logging.FromContext(cmd.Context())
	adapter := logging.NewAdapter(logger)
	resolver, closeResolver, err := app.NewResolver(cfg, adapter)
	if err != nil {
		return err
	}
	defer closeResolver()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("listening", "addr", addr, "registry", resolver.Registry().BaseURL())
	return server.New(resolver, adapter).ListenAndServe(ctx, addr)
}
