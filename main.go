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

// Command modcdn resolves npm dependencies and fetches packages as module
// graphs for in-browser bundlers.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/modcdn/cdn"
	"bennypowers.dev/modcdn/cmd/manifest"
	"bennypowers.dev/modcdn/cmd/module"
	"bennypowers.dev/modcdn/cmd/serve"
	"bennypowers.dev/modcdn/cmd/version"
	"bennypowers.dev/modcdn/internal/logging"
)

var (
	cpuprofile     string
	cpuprofileFile *os.File
	rootCmd        = &cobra.Command{
		Use:   "modcdn",
		Short: "Resolve npm dependencies into module graphs",
		Long: `modcdn resolves npm dependency ranges to concrete versions, downloads package
tarballs and lists the external packages each source file imports.

Settings can also come from the environment: MODCDN_REGISTRY, MODCDN_ATTEMPTS,
MODCDN_DELAY and so on.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cmd.ErrOrStderr(), logging.Level(viper.GetBool("verbose")))
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				cpuprofileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					closeErr := f.Close()
					return errors.Join(
						fmt.Errorf("could not start CPU profile: %w", err),
						closeErr,
					)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cpuprofileFile != nil {
				pprof.StopCPUProfile()
				if err := cpuprofileFile.Close(); err != nil {
					return fmt.Errorf("closing CPU profile: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	viper.SetEnvPrefix("MODCDN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Root flags (persistent across all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringP("package", "p", ".", "Package directory")
	flags.StringP("output", "o", "", "Output file (default: stdout)")
	flags.String("registry", cdn.DefaultMirror.Name,
		fmt.Sprintf("Registry mirror (%s) or base URL", strings.Join(cdn.MirrorNames(), ", ")))
	flags.Int("attempts", cdn.DefaultAttempts, "Attempts per registry request")
	flags.Duration("delay", cdn.DefaultDelay, "Fixed delay between attempts")
	flags.Bool("pretty", false, "Indent JSON output")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	for _, name := range []string{"package", "output", "registry", "attempts", "delay", "pretty", "verbose"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	// Add commands
	rootCmd.AddCommand(manifest.Cmd)
	rootCmd.AddCommand(module.Cmd)
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
