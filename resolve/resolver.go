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

package resolve

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"bennypowers.dev/modcdn/analyze"
	"bennypowers.dev/modcdn/archive"
	"bennypowers.dev/modcdn/cdn"
	"bennypowers.dev/modcdn/packagejson"
)

// Resolver resolves manifests and fetches module graphs from a registry.
// It keeps no state between calls; every call fetches fresh metadata.
type Resolver struct {
	registry    *cdn.Registry
	analyzer    *analyze.Analyzer
	logger      Logger
	concurrency int
	exclude     []string
}

// New creates a Resolver. The analyzer may be nil for a Resolver that only
// resolves manifests.
func New(registry *cdn.Registry, analyzer *analyze.Analyzer) *Resolver {
	return &Resolver{
		registry:    registry,
		analyzer:    analyzer,
		concurrency: 1,
	}
}

// WithLogger returns a new Resolver with the specified logger.
func (r *Resolver) WithLogger(logger Logger) *Resolver {
	return &Resolver{
		registry:    r.registry,
		analyzer:    r.analyzer,
		logger:      logger,
		concurrency: r.concurrency,
		exclude:     r.exclude,
	}
}

// WithConcurrency returns a new Resolver that resolves up to n declared
// dependencies at once. Output order does not depend on n. Values below
// one mean one.
func (r *Resolver) WithConcurrency(n int) *Resolver {
	return &Resolver{
		registry:    r.registry,
		analyzer:    r.analyzer,
		logger:      r.logger,
		concurrency: max(n, 1),
		exclude:     r.exclude,
	}
}

// WithExclude returns a new Resolver that leaves archive paths matching
// any of the given doublestar patterns out of module graphs.
func (r *Resolver) WithExclude(patterns ...string) (*Resolver, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Resolver{
		registry:    r.registry,
		analyzer:    r.analyzer,
		logger:      r.logger,
		concurrency: r.concurrency,
		exclude:     append([]string(nil), patterns...),
	}, nil
}

// Registry returns the registry client the Resolver uses.
func (r *Resolver) Registry() *cdn.Registry {
	return r.registry
}

// ResolveManifest resolves each declared dependency, in declared order,
// followed by the dependencies its resolved version declares. Those are
// resolved but not walked further, and no entry is de-duplicated: a
// package reached along several paths appears once per path.
//
// Any registry failure aborts the call.
func (r *Resolver) ResolveManifest(ctx context.Context, deps packagejson.Dependencies) ([]ResolvedDependency, error) {
	for _, dep := range deps {
		if dep.Name == "" {
			return nil, ErrEmptyName
		}
	}

	groups := make([][]ResolvedDependency, len(deps))

	if r.concurrency <= 1 || len(deps) <= 1 {
		for i, dep := range deps {
			entries, err := r.resolveEntry(ctx, dep)
			if err != nil {
				return nil, err
			}
			groups[i] = entries
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for i, dep := range deps {
			g.Go(func() error {
				entries, err := r.resolveEntry(gctx, dep)
				if err != nil {
					return err
				}
				groups[i] = entries
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	resolved := make([]ResolvedDependency, 0, len(deps))
	for _, entries := range groups {
		resolved = append(resolved, entries...)
	}
	return resolved, nil
}

// resolveEntry resolves one declared dependency and its direct dependencies.
func (r *Resolver) resolveEntry(ctx context.Context, dep packagejson.Dependency) ([]ResolvedDependency, error) {
	version, err := r.registry.ResolveVersion(ctx, dep.Name, dep.Range)
	if err != nil {
		return nil, err
	}
	r.debug("resolved %s@%s to %s", dep.Name, dep.Range, version)

	info, err := r.registry.PackageInfo(ctx, dep.Name, version)
	if err != nil {
		return nil, err
	}

	entries := make([]ResolvedDependency, 0, len(info.Dependencies)+1)
	entries = append(entries, ResolvedDependency{Name: dep.Name, Version: version, Depth: 0})

	for _, sub := range info.Dependencies {
		if sub.Name == "" {
			r.warning("%s@%s declares a dependency with an empty name", dep.Name, version)
			continue
		}
		subVersion, err := r.registry.ResolveVersion(ctx, sub.Name, sub.Range)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ResolvedDependency{Name: sub.Name, Version: subVersion, Depth: 1})
	}
	return entries, nil
}

// FetchModule downloads the tarball of name@version and builds its module
// graph. Source files (.js, .jsx, .ts, .tsx) are analyzed for imports, .json
// files are kept as data and everything else is left out.
//
// Registry and download failures abort the call. An archive or source file
// that cannot be read completely only reduces what the graph contains.
func (r *Resolver) FetchModule(ctx context.Context, name, version string) (*ModuleGraph, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if r.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	info, err := r.registry.PackageInfo(ctx, name, version)
	if err != nil {
		return nil, err
	}

	data, err := r.registry.Tarball(ctx, info.TarballURL)
	if err != nil {
		return nil, &cdn.RegistryError{Op: "tarball", Package: name, Version: version, Err: err}
	}
	r.debug("downloaded %s (%d bytes)", info.TarballURL, len(data))

	extracted := archive.Extract(data)
	if extracted.Degraded() {
		r.warning("extracting %s@%s: %v", name, version, extracted.Err)
	}

	graph := &ModuleGraph{
		Files:        make(map[string]ModuleFile),
		Dependencies: []string{},
	}
	seen := make(map[string]bool)

	for _, file := range extracted.Files {
		if r.excluded(file.Path) {
			continue
		}

		switch Classify(file.Path) {
		case Source:
			result := r.analyzer.Analyze(file.Content)
			if result.Degraded() {
				r.warning("analyzing %s@%s/%s: %v", name, version, file.Path, result.Err)
			}
			graph.Files[file.Path] = ModuleFile{
				Content:      file.Content,
				Dependencies: result.Dependencies,
			}
			for _, dep := range result.Dependencies {
				if !seen[dep] {
					seen[dep] = true
					graph.Dependencies = append(graph.Dependencies, dep)
				}
			}
		case Data:
			graph.Files[file.Path] = ModuleFile{
				Content:      file.Content,
				Dependencies: []string{},
				Transpiled:   true,
			}
		}
	}

	return graph, nil
}

func (r *Resolver) excluded(p string) bool {
	for _, pattern := range r.exclude {
		if match, _ := doublestar.Match(pattern, p); match {
			return true
		}
	}
	return false
}

func (r *Resolver) warning(format string, args ...any) {
	if r.logger != nil {
		r.logger.Warning(format, args...)
	}
}

func (r *Resolver) debug(format string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(format, args...)
	}
}
