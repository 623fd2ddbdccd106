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
	"fmt"
	"net/url"
	"strings"
)

// Mirror is a named npm-compatible registry endpoint.
type Mirror struct {
	Name string
	// URL is the registry base. Package documents live at {URL}/{package}
	// and version documents at {URL}/{package}/{version}.
	URL string
}

// Predefined registry mirrors
var (
	// NpmMirror is the npmmirror.com registry mirror.
	NpmMirror = Mirror{
		Name: "npmmirror",
		URL:  "https://registry.npmmirror.com",
	}

	// Npmjs is the public npm registry.
	Npmjs = Mirror{
		Name: "npmjs",
		URL:  "https://registry.npmjs.org",
	}

	// Yarn is the yarnpkg registry proxy.
	Yarn = Mirror{
		Name: "yarn",
		URL:  "https://registry.yarnpkg.com",
	}
)

// DefaultMirror is the registry used when none is configured.
var DefaultMirror = NpmMirror

// MirrorByName returns a registry mirror by name.
// Returns nil if the mirror name is not recognized.
func MirrorByName(name string) *Mirror {
	switch name {
	case "npmmirror", "npmmirror.com", "cnpm":
		return &NpmMirror
	case "npmjs", "npm", "npmjs.org":
		return &Npmjs
	case "yarn", "yarnpkg", "yarnpkg.com":
		return &Yarn
	default:
		return nil
	}
}

// MirrorNames returns a list of supported mirror names.
func MirrorNames() []string {
	return []string{"npmmirror", "npmjs", "yarn"}
}

// RegistryURL maps a --registry value to a base URL. A known mirror name
// selects that mirror; anything else must be an absolute http(s) URL.
// An empty value selects DefaultMirror.
func RegistryURL(value string) (string, error) {
	if value == "" {
		return DefaultMirror.URL, nil
	}
	if m := MirrorByName(value); m != nil {
		return m.URL, nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid registry %q: must be one of %s or an http(s) URL",
			value, strings.Join(MirrorNames(), ", "))
	}
	return strings.TrimSuffix(value, "/"), nil
}
