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

// Package module provides the module command for modcdn.
package module

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bennypowers.dev/modcdn/analyze"
	"bennypowers.dev/modcdn/fs"
	"bennypowers.dev/modcdn/internal/app"
	"bennypowers.dev/modcdn/internal/logging"
	"bennypowers.dev/modcdn/internal/output"
	"bennypowers.dev/modcdn/packagejson"
	"bennypowers.dev/modcdn/resolve"
)

// Cmd is the module cobra command that fetches a package as a module graph.
var Cmd = &cobra.Command{
	Use:   "module <name@version | name version>",
	Short: "Fetch a package and list the modules its sources import",
	Long: `Download the tarball of an exact package version and print its module graph:
every .js, .jsx, .ts and .tsx file with the external packages it imports, every
.json file as data, and the union of all imported packages.

A leading ^ or ~ on the version is ignored.`,
	Example: `  # Fetch react-dom 18.2.0
  modcdn module react-dom@18.2.0

  # Skip test files and write the result to a file
  modcdn module lodash 4.17.21 --exclude "**/*.test.js" -o lodash.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: run,
}

func init() {
	Cmd.Flags().Int("size-limit", analyze.DefaultSizeLimit, "Largest source file analyzed, in bytes (0 for no limit)")
	Cmd.Flags().StringArray("exclude", nil, "Glob of archive paths to leave out (can be repeated)")
}

func run(cmd *cobra.Command, args []string) error {
	name, version, err := target(args)
	if err != nil {
		return err
	}

	cfg := app.ConfigFromViper()
	if cfg.SizeLimit, err = cmd.Flags().GetInt("size-limit"); err != nil {
		return err
	}
	if cfg.Exclude, err = cmd.Flags().GetStringArray("exclude"); err != nil {
		return err
	}

	logger := logging.FromContext(cmd.Context())
	resolver, closeResolver, err := app.NewResolver(cfg, logging.NewAdapter(logger))
	if err != nil {
		return err
	}
	defer closeResolver()

	logger.Debug("fetching module", "name", name, "version", version)
	graph, err := resolver.FetchModule(cmd.Context(), name, version)
	if err != nil {
		return fmt.Errorf("failed to fetch %s@%s: %w", name, version, err)
	}
	logger.Info("fetched module", "files", len(graph.Files), "dependencies", len(graph.Dependencies))

	return output.JSON(fs.NewOSFileSystem(), cmd.OutOrStdout(), graph)
}

// target reads the package name and exact version from the arguments.
func target(args []string) (name, version string, err error) {
	if len(args) == 2 {
		name, version = args[0], args[1]
	} else {
		if strings.LastIndexByte(args[0], '@') <= 0 {
			return "", "", fmt.Errorf("missing version in %q: use name@version", args[0])
		}
		dep := packagejson.ParseDependency(args[0])
		name, version = dep.Name, dep.Range
	}
	version = resolve.ExactVersion(version)
	if name == "" || version == "" {
		return "", "", fmt.Errorf("package name and version are required")
	}
	return name, version, nil
}
