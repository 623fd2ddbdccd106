//go:build js && wasm

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

// Package main provides the WASM entry point for modcdn.
package main

import (
	"context"
	"encoding/json"
	"syscall/js"
	"time"

	"bennypowers.dev/modcdn/cdn"
	"bennypowers.dev/modcdn/packagejson"
	"bennypowers.dev/modcdn/resolve"
)

// Version is the modcdn WASM version.
const Version = "0.1.0"

func main() {
	modcdn := make(map[string]any)
	modcdn["fetchManifest"] = js.FuncOf(fetchManifest)
	modcdn["version"] = Version

	js.Global().Set("modcdn", js.ValueOf(modcdn))

	// Keep the program running
	select {}
}

// fetchManifest resolves a dependency object to concrete versions.
// Arguments:
//   - depsStr: string - A JSON object of package name to version range
//   - options: object (optional)
//     - registry: string - Mirror name or base URL
//     - attempts: number - Tries per request
//     - delay: number - Milliseconds between tries
//
// Returns a Promise that resolves to the manifest JSON string.
func fetchManifest(this js.Value, args []js.Value) any {
	handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) any {
		resolveFn := promiseArgs[0]
		reject := promiseArgs[1]

		go func() {
			result, err := doFetchManifest(args)
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolveFn.Invoke(result)
		}()

		return nil
	})

	promise := js.Global().Get("Promise").New(handler)
	handler.Release()
	return promise
}

func doFetchManifest(args []js.Value) (string, error) {
	if len(args) < 1 {
		return "", &jsError{message: "fetchManifest requires a dependencies JSON string"}
	}

	deps, err := packagejson.ParseDependencies([]byte(args[0].String()))
	if err != nil {
		return "", &jsError{message: "failed to parse dependencies: " + err.Error()}
	}

	opts := parseOptions(args)
	baseURL, err := cdn.RegistryURL(opts.registry)
	if err != nil {
		return "", &jsError{message: err.Error()}
	}

	fetcher := cdn.NewRetryFetcher(cdn.NewHTTPFetcher()).WithPolicy(opts.attempts, opts.delay)
	resolver := resolve.New(cdn.NewRegistryWithURL(fetcher, baseURL), nil)

	resolved, err := resolver.ResolveManifest(context.Background(), deps)
	if err != nil {
		return "", &jsError{message: "failed to resolve manifest: " + err.Error()}
	}

	jsonBytes, err := json.Marshal(resolved)
	if err != nil {
		return "", &jsError{message: "failed to serialize manifest: " + err.Error()}
	}
	return string(jsonBytes), nil
}

type manifestOptions struct {
	registry string
	attempts int
	delay    time.Duration
}

func parseOptions(args []js.Value) manifestOptions {
	opts := manifestOptions{
		attempts: cdn.DefaultAttempts,
		delay:    cdn.DefaultDelay,
	}

	if len(args) < 2 || args[1].IsUndefined() || args[1].IsNull() {
		return opts
	}
	optionsObj := args[1]

	if v := optionsObj.Get("registry"); !v.IsUndefined() && !v.IsNull() {
		opts.registry = v.String()
	}
	if v := optionsObj.Get("attempts"); !v.IsUndefined() && !v.IsNull() {
		opts.attempts = v.Int()
	}
	if v := optionsObj.Get("delay"); !v.IsUndefined() && !v.IsNull() {
		opts.delay = time.Duration(v.Int()) * time.Millisecond
	}
	return opts
}

// jsError represents an error to be returned to JavaScript.
type jsError struct {
	message string
}

func (e *jsError) Error() string {
	return e.message
}
