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

// Package treesitter implements analyze.Parser with the tree-sitter TSX
// grammar, which accepts JavaScript, JSX and TypeScript alike.
package treesitter

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"bennypowers.dev/modcdn/analyze"
)

//go:embed queries/dependencies.scm
var dependenciesQuery string

var language = ts.NewLanguage(tsTypescript.LanguageTSX())

var parserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(language); err != nil {
			panic("failed to set TSX language: " + err.Error())
		}
		return parser
	},
}

func getParser() *ts.Parser {
	return parserPool.Get().(*ts.Parser)
}

func putParser(p *ts.Parser) {
	p.Reset()
	parserPool.Put(p)
}

// Parser finds import and require specifiers. It is safe for concurrent
// use; each call borrows a pooled tree-sitter parser. Close waits for
// calls in progress.
type Parser struct {
	mu     sync.RWMutex
	closed bool
	query  *ts.Query
}

var _ analyze.Parser = (*Parser)(nil)

// New compiles the dependency query.
func New() (*Parser, error) {
	query, qerr := ts.NewQuery(language, dependenciesQuery)
	if qerr != nil {
		return nil, fmt.Errorf("failed to parse dependencies query: %w", qerr)
	}
	return &Parser{query: query}, nil
}

// Close releases the compiled query. Safe to call multiple times.
func (p *Parser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.query.Close()
	p.query = nil
}

// Specifiers implements analyze.Parser. A tree with syntax errors yields
// no specifiers and an error wrapping analyze.ErrSyntax.
func (p *Parser) Specifiers(source []byte) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	query := p.query
	if query == nil {
		return nil, fmt.Errorf("parser is closed")
	}

	parser := getParser()
	defer putParser(parser)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: parser returned no tree", analyze.ErrSyntax)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w: syntax error near line %d", analyze.ErrSyntax, firstErrorLine(root))
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	matches := cursor.Matches(query, root, source)

	var specifiers []string
	for {
		match := matches.Next()
		if match == nil {
			break
		}

		var callee, args *ts.Node
		for _, capture := range match.Captures {
			node := capture.Node
			switch captureNames[capture.Index] {
			case "import.source":
				specifiers = append(specifiers, stringValue(&node, source))
			case "require.callee":
				callee = &node
			case "require.args":
				args = &node
			}
		}

		if callee != nil && args != nil && callee.Utf8Text(source) == "require" {
			if arg := soleStringArgument(args); arg != nil {
				specifiers = append(specifiers, stringValue(arg, source))
			}
		}
	}

	return specifiers, nil
}

// soleStringArgument returns the argument of a call with exactly one
// argument when that argument is a string literal.
func soleStringArgument(args *ts.Node) *ts.Node {
	var only *ts.Node
	count := 0
	for i := range args.NamedChildCount() {
		child := args.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		count++
		only = child
	}
	if count != 1 || only.Kind() != "string" {
		return nil
	}
	return only
}

// stringValue returns the value of a string literal node, decoding
// escape sequences.
func stringValue(node *ts.Node, source []byte) string {
	var b strings.Builder
	for i := range node.NamedChildCount() {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		text := child.Utf8Text(source)
		switch child.Kind() {
		case "string_fragment":
			b.WriteString(text)
		case "escape_sequence":
			b.WriteString(unescape(text))
		}
	}
	return b.String()
}

func unescape(seq string) string {
	if strings.HasPrefix(seq, "\\'") {
		return "'"
	}
	if s, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return s
	}
	return strings.TrimPrefix(seq, "\\")
}

// firstErrorLine returns the 1-indexed line of the first ERROR or MISSING
// node below node, or 0 when there is none.
func firstErrorLine(node *ts.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPosition().Row) + 1
	}
	for i := range node.ChildCount() {
		child := node.Child(i)
		if child == nil || !child.HasError() {
			continue
		}
		if line := firstErrorLine(child); line > 0 {
			return line
		}
	}
	return 0
}
