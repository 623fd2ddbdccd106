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

package packagejson_test

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"bennypowers.dev/modcdn/packagejson"
	"bennypowers.dev/modcdn/testutil"
)

func TestParseFile(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "packagejson/ordered", "/test")

	pkg, err := packagejson.ParseFile(mfs, "/test/package.json")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	if pkg.Name != "sandbox-app" {
		t.Errorf("Expected name sandbox-app, got %q", pkg.Name)
	}

	want := []string{"react", "react-dom", "lodash"}
	if got := pkg.Dependencies.Names(); !slices.Equal(got, want) {
		t.Errorf("Dependencies order = %v, want %v", got, want)
	}
}

func TestAllDependencies(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "packagejson/ordered", "/test")
	pkg, err := packagejson.ParseFile(mfs, "/test/package.json")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	tests := []struct {
		name       string
		includeDev bool
		want       []string
	}{
		{"prod only", false, []string{"react", "react-dom", "lodash"}},
		{"with dev", true, []string{"react", "react-dom", "lodash", "typescript"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := pkg.AllDependencies(tt.includeDev)
			if got := deps.Names(); !slices.Equal(got, tt.want) {
				t.Errorf("AllDependencies(%v) = %v, want %v", tt.includeDev, got, tt.want)
			}
			// A devDependency never overrides a production range.
			if rng, _ := deps.Get("react"); rng != "^18.2.0" {
				t.Errorf("react range = %q, want ^18.2.0", rng)
			}
		})
	}

	if len(pkg.Dependencies) != 3 {
		t.Errorf("AllDependencies modified the receiver: %v", pkg.Dependencies)
	}
}

func TestParseDependencies(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    packagejson.Dependencies
		wantErr bool
	}{
		{
			name:  "keeps key order",
			input: `{"zeta": "1.0.0", "alpha": "^2.0.0", "mid": "~3.1.0"}`,
			want: packagejson.Dependencies{
				{Name: "zeta", Range: "1.0.0"},
				{Name: "alpha", Range: "^2.0.0"},
				{Name: "mid", Range: "~3.1.0"},
			},
		},
		{
			name:  "duplicate key keeps first position and last value",
			input: `{"a": "1", "b": "2", "a": "3"}`,
			want: packagejson.Dependencies{
				{Name: "a", Range: "3"},
				{Name: "b", Range: "2"},
			},
		},
		{
			name:  "empty object",
			input: `{}`,
			want:  packagejson.Dependencies{},
		},
		{
			name:  "null",
			input: `null`,
			want:  nil,
		},
		{name: "array", input: `["react"]`, wantErr: true},
		{name: "non-string range", input: `{"react": 18}`, wantErr: true},
		{name: "malformed", input: `{"react": `, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := packagejson.ParseDependencies([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDependencies(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseDependencies(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDependenciesNotObject(t *testing.T) {
	_, err := packagejson.ParseDependencies([]byte(`"react"`))
	if !errors.Is(err, packagejson.ErrNotObject) {
		t.Errorf("Expected ErrNotObject, got %v", err)
	}
}

func TestDependenciesMarshalJSON(t *testing.T) {
	deps := packagejson.Dependencies{
		{Name: "react", Range: "^18.0.0"},
		{Name: "@scope/pkg", Range: "1.0.0"},
	}

	data, err := json.Marshal(deps)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := `{"react":"^18.0.0","@scope/pkg":"1.0.0"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestParseDependency(t *testing.T) {
	tests := []struct {
		arg  string
		want packagejson.Dependency
	}{
		{"react@^18.2.0", packagejson.Dependency{Name: "react", Range: "^18.2.0"}},
		{"lodash", packagejson.Dependency{Name: "lodash", Range: "latest"}},
		{"@lit/reactive-element@2.0.4", packagejson.Dependency{Name: "@lit/reactive-element", Range: "2.0.4"}},
		{"@scope/pkg", packagejson.Dependency{Name: "@scope/pkg", Range: "latest"}},
		{"left-pad@", packagejson.Dependency{Name: "left-pad", Range: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			if got := packagejson.ParseDependency(tt.arg); got != tt.want {
				t.Errorf("ParseDependency(%q) = %+v, want %+v", tt.arg, got, tt.want)
			}
		})
	}
}
