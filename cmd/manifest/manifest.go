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

// Package manifest provides the manifest command for modcdn.
package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/modcdn/fs"
	"bennypowers.dev/modcdn/internal/app"
	"bennypowers.dev/modcdn/internal/logging"
	"bennypowers.dev/modcdn/internal/output"
	"bennypowers.dev/modcdn/packagejson"
)

// Cmd is the manifest cobra command that resolves dependencies to versions.
var Cmd = &cobra.Command{
	Use:   "manifest [name@range...]",
	Short: "Resolve dependencies to concrete versions",
	Long: `Resolve declared dependencies, and the dependencies each of them declares,
to concrete versions.

Dependencies come from the arguments, from --deps, or from the package.json in
the --package directory, in that order of preference. Ranges starting with ^ or ~
resolve to the latest published version; other ranges are pinned by keeping
only their digits and dots.`,
	Example: `  # Resolve the dependencies of ./package.json
  modcdn manifest

  # Resolve packages named on the command line
  modcdn manifest react@^18.2.0 lodash@4.17.21

  # Resolve a JSON dependency object against the public registry
  modcdn manifest --registry npmjs --deps '{"lit": "^3.0.0"}'`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("deps", "", "Dependencies as a JSON object of name to range")
	Cmd.Flags().Bool("include-dev", false, "Also resolve devDependencies from package.json")
	Cmd.Flags().Int("concurrency", 1, "Number of declared dependencies resolved at once")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()
	logger := logging.FromContext(cmd.Context())

	deps, err := dependencies(cmd, osfs, args)
	if err != nil {
		return err
	}

	cfg := app.ConfigFromViper()
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return err
	}
	resolver, err := app.NewManifestResolver(cfg, logging.NewAdapter(logger))
	if err != nil {
		return err
	}

	logger.Debug("resolving", "packages", deps.Names(), "registry", resolver.Registry().BaseURL())
	resolved, err := resolver.ResolveManifest(cmd.Context(), deps)
	if err != nil {
		return fmt.Errorf("failed to resolve manifest: %w", err)
	}
	logger.Info("resolved manifest", "entries", len(resolved))

	return output.JSON(osfs, cmd.OutOrStdout(), resolved)
}

func dependencies(cmd *cobra.Command, osfs fs.FileSystem, args []string) (packagejson.Dependencies, error) {
	if len(args) > 0 {
		deps := make(packagejson.Dependencies, 0, len(args))
		for _, arg := range args {
			deps = append(deps, packagejson.ParseDependency(arg))
		}
		return deps, nil
	}

	if raw, _ := cmd.Flags().GetString("deps"); raw != "" {
		deps, err := packagejson.ParseDependencies([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid --deps: %w", err)
		}
		return deps, nil
	}

	pkgPath := filepath.Join(viper.GetString("package"), "package.json")
	pkg, err := packagejson.ParseFile(osfs, pkgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pkgPath, err)
	}
	includeDev, _ := cmd.Flags().GetBool("include-dev")
	return pkg.AllDependencies(includeDev), nil
}
