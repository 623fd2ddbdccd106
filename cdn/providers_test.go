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

package cdn

import (
	"testing"
)

func TestMirrorByName(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantNil  bool
	}{
		{"npmmirror", "npmmirror", false},
		{"cnpm", "npmmirror", false},
		{"npmmirror.com", "npmmirror", false},
		{"npmjs", "npmjs", false},
		{"npm", "npmjs", false},
		{"yarn", "yarn", false},
		{"yarnpkg.com", "yarn", false},
		{"unknown", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MirrorByName(tt.name)
			if tt.wantNil {
				if got != nil {
					t.Errorf("MirrorByName(%q) = %v, want nil", tt.name, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("MirrorByName(%q) = nil, want %q", tt.name, tt.wantName)
			}
			if got.Name != tt.wantName {
				t.Errorf("MirrorByName(%q).Name = %q, want %q", tt.name, got.Name, tt.wantName)
			}
		})
	}
}

func TestMirrorNames(t *testing.T) {
	names := MirrorNames()
	if len(names) != 3 {
		t.Fatalf("Expected 3 mirrors, got %d", len(names))
	}
	for _, name := range names {
		if m := MirrorByName(name); m == nil || m.Name != name {
			t.Errorf("MirrorNames() lists %q but MirrorByName returns %v", name, m)
		}
	}
}

func TestDefaultMirror(t *testing.T) {
	if DefaultMirror.URL != "https://registry.npmmirror.com" {
		t.Errorf("DefaultMirror.URL = %q", DefaultMirror.URL)
	}
}

func TestRegistryURL(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{"", "https://registry.npmmirror.com", false},
		{"npmjs", "https://registry.npmjs.org", false},
		{"https://npm.internal.example.com/", "https://npm.internal.example.com", false},
		{"http://127.0.0.1:4873", "http://127.0.0.1:4873", false},
		{"ftp://registry.example.com", "", true},
		{"registry.example.com", "", true},
		{"https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := RegistryURL(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RegistryURL(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RegistryURL(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
