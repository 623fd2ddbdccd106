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

// Package server exposes manifest resolution and module fetching over HTTP
// for a browser-side bundler.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bennypowers.dev/modcdn/cdn"
	"bennypowers.dev/modcdn/internal/output"
	"bennypowers.dev/modcdn/packagejson"
	"bennypowers.dev/modcdn/resolve"
)

// DefaultAddr is the address the bundler page expects the service on.
const DefaultAddr = ":4587"

// maxBodyBytes bounds POST /manifest bodies.
const maxBodyBytes = 1 << 20

// Service is the resolver surface the server needs.
type Service interface {
	ResolveManifest(ctx context.Context, deps packagejson.Dependencies) ([]resolve.ResolvedDependency, error)
	FetchModule(ctx context.Context, name, version string) (*resolve.ModuleGraph, error)
}

// Server routes HTTP requests to a Service.
type Server struct {
	service Service
	logger  resolve.Logger
	router  chi.Router
}

// New creates a Server. logger may be nil.
func New(service Service, logger resolve.Logger) *Server {
	s := &Server{service: service, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(allowCORS)

	r.Get("/healthz", s.handleHealth)
	r.Get("/manifest", s.handleManifestQuery)
	r.Post("/manifest", s.handleManifestBody)
	r.Get("/module", s.handleModule)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleManifestQuery(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("deps")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing deps query parameter"))
		return
	}
	s.resolveManifest(w, r, []byte(raw))
}

func (s *Server) handleManifestBody(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	s.resolveManifest(w, r, body)
}

func (s *Server) resolveManifest(w http.ResponseWriter, r *http.Request, data []byte) {
	deps, err := packagejson.ParseDependencies(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid dependencies: %w", err))
		return
	}

	resolved, err := s.service.ResolveManifest(r.Context(), deps)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, resolved)
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name := query.Get("name")
	version := resolve.ExactVersion(query.Get("version"))
	if name == "" || version == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("name and version query parameters are required"))
		return
	}

	graph, err := s.service.FetchModule(r.Context(), name, version)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, graph)
}

// statusFor maps a resolver error to a response status. Failures to reach
// or understand the registry are reported as a bad gateway.
func statusFor(err error) int {
	var fetchErr *cdn.FetchError
	switch {
	case errors.Is(err, resolve.ErrEmptyName):
		return http.StatusBadRequest
	case errors.As(err, &fetchErr) && fetchErr.IsNotFound():
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := output.Encode(v, false)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if s.logger != nil {
		s.logger.Warning("%d: %v", status, err)
	}
	data, _ := output.Encode(map[string]string{"error": err.Error()}, false)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if s.logger != nil {
			s.logger.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(),
				time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
		}
	})
}

// allowCORS lets a bundler page on another origin call the service.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
