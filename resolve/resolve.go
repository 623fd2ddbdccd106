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

// Package resolve turns declared dependencies into concrete versions and
// fetches packages as module graphs ready for an in-browser bundler.
package resolve

import (
	"errors"
	"path"
	"strings"
)

// Logger is an interface for logging messages during resolution.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Validation errors returned before any request is made.
var (
	ErrEmptyName  = errors.New("package name is empty")
	ErrNoAnalyzer = errors.New("resolver has no source analyzer")
)

// ResolvedDependency is one entry of a resolved manifest. The short JSON
// names keep the wire format compact.
type ResolvedDependency struct {
	Name    string `json:"n"`
	Version string `json:"v"`
	// Depth is 0 for declared dependencies and 1 for their dependencies.
	Depth int `json:"d"`
}

// ModuleFile is one file of a fetched package.
type ModuleFile struct {
	Content string `json:"c"`
	// Dependencies lists the external packages a source file imports.
	// It is always empty for data files.
	Dependencies []string `json:"d"`
	// Transpiled is true for data files, which need no transformation
	// before use, and false for source files.
	Transpiled bool `json:"t"`
}

// ModuleGraph is a fetched package: its usable files and the union of
// the external packages they import.
type ModuleGraph struct {
	Files        map[string]ModuleFile `json:"f"`
	Dependencies []string              `json:"m"`
}

// FileKind classifies archive paths by extension.
type FileKind int

const (
	// Excluded files are left out of a ModuleGraph.
	Excluded FileKind = iota
	// Source files are analyzed for imports.
	Source
	// Data files are kept verbatim.
	Data
)

func (k FileKind) String() string {
	switch k {
	case Source:
		return "source"
	case Data:
		return "data"
	default:
		return "excluded"
	}
}

// Classify returns the kind of the file at p.
func Classify(p string) FileKind {
	switch path.Ext(p) {
	case ".js", ".jsx", ".ts", ".tsx":
		return Source
	case ".json":
		return Data
	default:
		return Excluded
	}
}

// ExactVersion trims surrounding space and one leading ^ or ~ so a range
// copied from a manifest can be used where an exact version is required.
func ExactVersion(version string) string {
	version = strings.TrimSpace(version)
	if strings.HasPrefix(version, "^") || strings.HasPrefix(version, "~") {
		version = version[1:]
	}
	return version
}
