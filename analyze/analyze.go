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

// Package analyze finds the external packages a source file depends on.
//
// The syntax-tree work is delegated to a Parser so the grammar library can
// be swapped. This package applies what every parser shares: the size
// guard, the filtering of local specifiers and de-duplication.
package analyze

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSizeLimit is the largest source, in bytes, that is analyzed.
const DefaultSizeLimit = 1_000_000

// Degradation reasons reported in Result.Err.
var (
	ErrTooLarge = errors.New("source exceeds analysis size limit")
	ErrSyntax   = errors.New("source could not be parsed")
)

// Parser extracts module specifiers from source text.
type Parser interface {
	// Specifiers returns the literal specifiers of static import
	// declarations and of require calls with a single string argument,
	// in source order. Implementations return an error wrapping ErrSyntax
	// when the source does not parse.
	Specifiers(source []byte) ([]string, error)
}

// Result is the outcome of analyzing one source file.
type Result struct {
	// Dependencies lists external specifiers without duplicates, in order
	// of first appearance. It is never nil.
	Dependencies []string
	// Err is non-nil when the file was skipped or failed to parse, in
	// which case Dependencies is empty.
	Err error
}

// Degraded reports whether the file was not analyzed.
func (r Result) Degraded() bool {
	return r.Err != nil
}

// Analyzer runs a Parser over source files with a size guard.
type Analyzer struct {
	parser    Parser
	sizeLimit int
}

// New creates an Analyzer using DefaultSizeLimit.
func New(parser Parser) *Analyzer {
	return &Analyzer{
		parser:    parser,
		sizeLimit: DefaultSizeLimit,
	}
}

// WithSizeLimit returns a new Analyzer with a different size limit.
// A limit of zero or less disables the guard.
func (a *Analyzer) WithSizeLimit(limit int) *Analyzer {
	return &Analyzer{
		parser:    a.parser,
		sizeLimit: limit,
	}
}

// SizeLimit returns the configured size limit in bytes.
func (a *Analyzer) SizeLimit() int {
	return a.sizeLimit
}

// Analyze returns the external dependencies of source. It never fails:
// oversized or unparseable sources give an empty, degraded Result.
func (a *Analyzer) Analyze(source string) (result Result) {
	if a.sizeLimit > 0 && len(source) > a.sizeLimit {
		return Result{
			Dependencies: []string{},
			Err:          fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(source), a.sizeLimit),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = Result{Dependencies: []string{}, Err: fmt.Errorf("%w: %v", ErrSyntax, r)}
		}
	}()

	specifiers, err := a.parser.Specifiers([]byte(source))
	if err != nil {
		if !errors.Is(err, ErrSyntax) {
			err = fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return Result{Dependencies: []string{}, Err: err}
	}

	return Result{Dependencies: External(specifiers)}
}

// IsExternal reports whether specifier names a package rather than a file.
func IsExternal(specifier string) bool {
	return specifier != "" &&
		!strings.HasPrefix(specifier, ".") &&
		!strings.HasPrefix(specifier, "/")
}

// External filters specifiers down to package names, dropping duplicates
// while keeping first-seen order. The result is never nil.
func External(specifiers []string) []string {
	seen := make(map[string]bool, len(specifiers))
	deps := make([]string, 0, len(specifiers))
	for _, s := range specifiers {
		if !IsExternal(s) || seen[s] {
			continue
		}
		seen[s] = true
		deps = append(deps, s)
	}
	return deps
}
