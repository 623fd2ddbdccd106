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
package main

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "modcdn_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "modcdn_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, env []string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "modcdn_test")
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

// fakeRegistry serves package documents, version documents and tarballs.
type fakeRegistry struct {
	latest   map[string]string
	deps     map[string]string // name@version -> dependencies JSON
	tarballs map[string][]byte // name@version -> gzipped tar
	server   *httptest.Server
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	r := &fakeRegistry{
		latest:   make(map[string]string),
		deps:     make(map[string]string),
		tarballs: make(map[string][]byte),
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.server.Close)
	return r
}

func (r *fakeRegistry) URL() string {
	return r.server.URL
}

func (r *fakeRegistry) serve(w http.ResponseWriter, req *http.Request) {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	switch {
	case len(parts) == 1:
		latest, ok := r.latest[parts[0]]
		if !ok {
			http.NotFound(w, req)
			return
		}
		fmt.Fprintf(w, `{"name": %q, "dist-tags": {"latest": %q}, "versions": {%q: {}}}`, parts[0], latest, latest)
	case len(parts) == 2:
		key := parts[0] + "@" + parts[1]
		deps, ok := r.deps[key]
		if !ok {
			http.NotFound(w, req)
			return
		}
		fmt.Fprintf(w, `{"name": %q, "version": %q, "dependencies": %s, "dist": {"tarball": "%s/%s/-/%s.tgz"}}`,
			parts[0], parts[1], deps, r.server.URL, parts[0], parts[1])
	case len(parts) == 3 && parts[1] == "-":
		key := parts[0] + "@" + strings.TrimSuffix(parts[2], ".tgz")
		data, ok := r.tarballs[key]
		if !ok {
			http.NotFound(w, req)
			return
		}
		_, _ = w.Write(data)
	default:
		http.NotFound(w, req)
	}
}

func (r *fakeRegistry) publish(name, version, deps string) {
	r.latest[name] = version
	if deps == "" {
		deps = "{}"
	}
	r.deps[name+"@"+version] = deps
}

func gzipTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for name, body := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type resolved struct {
	N string `json:"n"`
	V string `json:"v"`
	D int    `json:"d"`
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, nil, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if info["version"] == "" {
		t.Errorf("Expected version field, got %v", info)
	}
}

func TestManifestArgs(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.publish("a", "1.2.0", `{"b": "=1"}`)
	reg.publish("b", "2.0.0", "")

	stdout, stderr, code := runCLI(t, nil, "manifest", "--registry", reg.URL(), "--attempts", "1", "a@^1.0.0")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if want := `[{"n":"a","v":"1.2.0","d":0},{"n":"b","v":"1","d":1}]` + "\n"; stdout != want {
		t.Errorf("stdout = %s, want %s", stdout, want)
	}
}

func TestManifestPackageJSON(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.publish("react", "18.3.1", `{"loose-envify": "^1.1.0"}`)
	reg.publish("react-dom", "18.3.1", `{"loose-envify": "^1.1.0", "scheduler": "^0.23.2"}`)
	reg.publish("lodash", "4.17.21", "")
	reg.publish("loose-envify", "1.4.0", "")
	reg.publish("scheduler", "0.23.2", "")
	reg.publish("typescript", "5.4.5", "")

	fixtureDir := filepath.Join("testdata", "packagejson", "ordered")
	stdout, stderr, code := runCLI(t, nil, "manifest", "--registry", reg.URL(), "--package", fixtureDir, "--include-dev", "--concurrency", "3")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var got []resolved
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	want := []resolved{
		{"react", "18.3.1", 0},
		{"loose-envify", "1.4.0", 1},
		{"react-dom", "18.3.1", 0},
		{"loose-envify", "1.4.0", 1},
		{"scheduler", "0.23.2", 1},
		{"lodash", "4.17.21", 0},
		{"typescript", "5.4.5", 0},
	}
	if len(got) != len(want) {
		t.Fatalf("Got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestManifestRegistryFromEnv(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.publish("lit", "3.1.0", "")

	env := []string{"MODCDN_REGISTRY=" + reg.URL(), "MODCDN_ATTEMPTS=1"}
	stdout, stderr, code := runCLI(t, env, "manifest", "--deps", `{"lit": "^3.0.0"}`)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, `"v":"3.1.0"`) {
		t.Errorf("Expected lit 3.1.0, got %s", stdout)
	}
}

func TestManifestNotFound(t *testing.T) {
	reg := newFakeRegistry(t)

	stdout, stderr, code := runCLI(t, nil, "manifest", "--registry", reg.URL(), "--attempts", "2", "--delay", "10ms", "ghost@1.0.0")
	if code == 0 {
		t.Fatalf("Expected failure, got stdout %s", stdout)
	}
	if !strings.Contains(stderr, "ghost") || !strings.Contains(stderr, "404") {
		t.Errorf("Expected error naming ghost and 404, got %s", stderr)
	}
}

func TestModule(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.publish("widget", "2.0.0", `{"react": "^18.0.0"}`)
	reg.tarballs["widget@2.0.0"] = gzipTar(t, map[string]string{
		"package/package.json": `{"name": "widget"}`,
		"package/index.js":     "import React from \"react\";\nimport { helper } from \"./helper.js\";\n",
		"package/helper.js":    "const clsx = require(\"clsx\");\nmodule.exports = { helper: clsx };\n",
		"package/README.md":    "# widget\n",
	})

	outFile := filepath.Join(t.TempDir(), "widget.json")
	stdout, stderr, code := runCLI(t, nil, "module", "--registry", reg.URL(), "widget@^2.0.0", "-o", outFile)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("Expected no stdout when writing to file, got: %s", stdout)
	}

	content, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	var graph struct {
		F map[string]struct {
			C string   `json:"c"`
			D []string `json:"d"`
			T bool     `json:"t"`
		} `json:"f"`
		M []string `json:"m"`
	}
	if err := json.Unmarshal(content, &graph); err != nil {
		t.Fatalf("Failed to parse output JSON: %v\n%s", err, content)
	}

	if len(graph.F) != 3 {
		t.Errorf("Expected 3 files, got %d", len(graph.F))
	}
	if _, ok := graph.F["README.md"]; ok {
		t.Error("README.md should be excluded")
	}
	if pkg := graph.F["package.json"]; !pkg.T || len(pkg.D) != 0 {
		t.Errorf("package.json should be a data record, got %+v", pkg)
	}
	if idx := graph.F["index.js"]; idx.T || len(idx.D) != 1 || idx.D[0] != "react" {
		t.Errorf("index.js = %+v", idx)
	}
	m := strings.Join(graph.M, ",")
	if m != "react,clsx" && m != "clsx,react" {
		t.Errorf("m = %v, want react and clsx", graph.M)
	}
}

func TestModuleMissingVersion(t *testing.T) {
	_, stderr, code := runCLI(t, nil, "module", "widget")
	if code == 0 {
		t.Fatal("Expected failure for missing version")
	}
	if !strings.Contains(stderr, "missing version") {
		t.Errorf("Unexpected stderr: %s", stderr)
	}
}

func TestInvalidRegistry(t *testing.T) {
	_, stderr, code := runCLI(t, nil, "manifest", "--registry", "ftp://example.com", "react@18.2.0")
	if code == 0 {
		t.Fatal("Expected failure for invalid registry")
	}
	if !strings.Contains(stderr, "invalid registry") {
		t.Errorf("Unexpected stderr: %s", stderr)
	}
}
