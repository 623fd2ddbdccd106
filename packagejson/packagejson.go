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

// Package packagejson parses the package.json fields used for dependency resolution.
package packagejson

import (
	"encoding/json"
	"slices"

	"bennypowers.dev/modcdn/fs"
)

// PackageJSON represents the subset of package.json relevant for resolution.
// The same shape is served by registries for a single published version.
type PackageJSON struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	Main            string       `json:"main,omitempty"`
	Module          string       `json:"module,omitempty"`
	Dependencies    Dependencies `json:"dependencies,omitempty"`
	DevDependencies Dependencies `json:"devDependencies,omitempty"`
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ParseFile parses a package.json file.
func ParseFile(fs fs.FileSystem, path string) (*PackageJSON, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// AllDependencies returns dependencies followed by any devDependencies not
// already declared. The receiver is not modified.
func (pkg *PackageJSON) AllDependencies(includeDev bool) Dependencies {
	deps := slices.Clone(pkg.Dependencies)
	if !includeDev {
		return deps
	}
	for _, dev := range pkg.DevDependencies {
		if _, exists := deps.Get(dev.Name); !exists {
			deps = append(deps, dev)
		}
	}
	return deps
}
