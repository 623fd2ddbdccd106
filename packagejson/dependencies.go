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

package packagejson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Dependency is a single declared name and version range.
type Dependency struct {
	Name  string
	Range string
}

// Dependencies is a dependency map that keeps the key order of its JSON
// source. A key repeated in the source keeps its first position and takes
// the last value.
type Dependencies []Dependency

// ErrNotObject is returned when dependency JSON is not an object of strings.
var ErrNotObject = errors.New("dependencies must be a JSON object of strings")

// ParseDependencies parses a JSON object mapping names to version ranges.
func ParseDependencies(data []byte) (Dependencies, error) {
	var deps Dependencies
	if err := json.Unmarshal(data, &deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dependencies) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return ErrNotObject
	}

	deps := Dependencies{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name := keyTok.(string)

		var rng string
		if err := dec.Decode(&rng); err != nil {
			return fmt.Errorf("dependency %q: %w", name, ErrNotObject)
		}

		if i, seen := index[name]; seen {
			deps[i].Range = rng
			continue
		}
		index[name] = len(deps)
		deps = append(deps, Dependency{Name: name, Range: rng})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = deps
	return nil
}

// MarshalJSON implements json.Marshaler, writing entries in order.
func (d Dependencies) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dep := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(dep.Name)
		if err != nil {
			return nil, err
		}
		rng, err := json.Marshal(dep.Range)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(rng)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the range declared for name.
func (d Dependencies) Get(name string) (string, bool) {
	for _, dep := range d {
		if dep.Name == name {
			return dep.Range, true
		}
	}
	return "", false
}

// Names returns the dependency names in declaration order.
func (d Dependencies) Names() []string {
	names := make([]string, len(d))
	for i, dep := range d {
		names[i] = dep.Name
	}
	return names
}

// ParseDependency splits a "name@range" argument. The separator is the
// last "@" that is not the first character, so scoped names work. A
// missing range means "latest".
func ParseDependency(arg string) Dependency {
	arg = strings.TrimSpace(arg)
	if i := strings.LastIndexByte(arg, '@'); i > 0 {
		return Dependency{Name: arg[:i], Range: arg[i+1:]}
	}
	return Dependency{Name: arg, Range: "latest"}
}
