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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bennypowers.dev/modcdn/packagejson"
)

// Registry provides access to an npm-compatible registry for package metadata.
// It holds no cache: every call fetches fresh documents.
type Registry struct {
	fetcher Fetcher
	baseURL string
}

// packageDocument is the part of {base}/{name} used to resolve ranges.
// The versions object is left undecoded since it can run to megabytes.
type packageDocument struct {
	DistTags map[string]string `json:"dist-tags"`
}

// versionDocument is the part of {base}/{name}/{version} used to fetch a
// module. Other manifest fields are ignored so that odd shapes in old
// packages (array "main", array "devDependencies") cannot fail a lookup.
type versionDocument struct {
	Dependencies packagejson.Dependencies `json:"dependencies"`
	Dist         struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
}

// PackageMetadata is the part of a version document needed to fetch a module.
type PackageMetadata struct {
	TarballURL   string
	Dependencies packagejson.Dependencies
}

// RegistryError reports a registry operation that could not produce a result,
// either because the transport failed or because the response had the wrong shape.
type RegistryError struct {
	Op      string // "resolve", "info" or "tarball"
	Package string
	Version string
	Err     error
}

func (e *RegistryError) Error() string {
	target := e.Package
	if e.Version != "" {
		target += "@" + e.Version
	}
	return fmt.Sprintf("registry %s %s: %v", e.Op, target, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Response shape errors wrapped by RegistryError.
var (
	ErrNoLatest  = errors.New("registry response has no latest dist-tag")
	ErrNoTarball = errors.New("registry response has no dist.tarball")
)

// NewRegistry creates a registry client for DefaultMirror.
func NewRegistry(fetcher Fetcher) *Registry {
	return &Registry{
		fetcher: fetcher,
		baseURL: DefaultMirror.URL,
	}
}

// NewRegistryWithURL creates a new registry client with a custom registry URL.
func NewRegistryWithURL(fetcher Fetcher, baseURL string) *Registry {
	return &Registry{
		fetcher: fetcher,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// BaseURL returns the registry base URL without a trailing slash.
func (r *Registry) BaseURL() string {
	return r.baseURL
}

// ResolveVersion turns a range into a concrete version. Ranges starting
// with ^ or ~ resolve to the latest dist-tag. Any other range is pinned
// by dropping every character that is not a digit or a dot; a range that
// pins to nothing (such as "latest" or "next") falls back to the dist-tag
// of that name, then to latest.
func (r *Registry) ResolveVersion(ctx context.Context, pkgName, versionRange string) (string, error) {
	url := fmt.Sprintf("%s/%s", r.baseURL, pkgName)
	data, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", &RegistryError{Op: "resolve", Package: pkgName, Err: err}
	}

	var pkg packageDocument
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", &RegistryError{Op: "resolve", Package: pkgName, Err: fmt.Errorf("failed to parse package metadata: %w", err)}
	}

	version, err := resolveVersionFromPackage(&pkg, versionRange)
	if err != nil {
		return "", &RegistryError{Op: "resolve", Package: pkgName, Err: err}
	}
	return version, nil
}

// PackageInfo fetches the tarball URL and declared dependencies of an exact version.
// Dependencies keep the order the registry lists them in and are empty, not nil,
// when the registry omits them.
func (r *Registry) PackageInfo(ctx context.Context, pkgName, version string) (*PackageMetadata, error) {
	url := fmt.Sprintf("%s/%s/%s", r.baseURL, pkgName, version)
	data, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &RegistryError{Op: "info", Package: pkgName, Version: version, Err: err}
	}

	var ver versionDocument
	if err := json.Unmarshal(data, &ver); err != nil {
		return nil, &RegistryError{Op: "info", Package: pkgName, Version: version, Err: fmt.Errorf("failed to parse version metadata: %w", err)}
	}
	if ver.Dist.Tarball == "" {
		return nil, &RegistryError{Op: "info", Package: pkgName, Version: version, Err: ErrNoTarball}
	}

	deps := ver.Dependencies
	if deps == nil {
		deps = packagejson.Dependencies{}
	}
	return &PackageMetadata{
		TarballURL:   ver.Dist.Tarball,
		Dependencies: deps,
	}, nil
}

// Tarball downloads the archive at url. Failures are returned as they come
// from the fetcher so callers see the transport error directly.
func (r *Registry) Tarball(ctx context.Context, url string) ([]byte, error) {
	return r.fetcher.Fetch(ctx, url)
}

// resolveVersionFromPackage applies the pin-or-latest rule to a package document.
func resolveVersionFromPackage(pkg *packageDocument, versionRange string) (string, error) {
	if strings.HasPrefix(versionRange, "^") || strings.HasPrefix(versionRange, "~") {
		latest := pkg.DistTags["latest"]
		if latest == "" {
			return "", ErrNoLatest
		}
		return latest, nil
	}

	if pinned := PinVersion(versionRange); pinned != "" {
		return pinned, nil
	}

	if tag := pkg.DistTags[strings.TrimSpace(versionRange)]; tag != "" {
		return tag, nil
	}
	if latest := pkg.DistTags["latest"]; latest != "" {
		return latest, nil
	}
	return "", fmt.Errorf("range %q pins no version: %w", versionRange, ErrNoLatest)
}

// PinVersion removes every character of versionRange that is not a digit or a dot.
func PinVersion(versionRange string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, versionRange)
}
