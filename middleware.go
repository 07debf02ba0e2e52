// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpmetrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"
)

// MiddlewareOption configures the metrics middleware. These options are
// separate from [Recorder] options and only affect per-request behavior.
type MiddlewareOption func(*middlewareConfig)

// middlewareConfig holds configuration for the middleware.
type middlewareConfig struct {
	resolveRoute RouteResolver
}

// newMiddlewareConfig creates a default middleware configuration.
func newMiddlewareConfig() *middlewareConfig {
	return &middlewareConfig{
		resolveRoute: defaultRouteResolver,
	}
}

// WithRouteResolver replaces the default route resolution. Use it to supply
// the matched route template for routers other than chi or net/http ServeMux.
//
// Example:
//
//	handler := httpmetrics.Middleware(recorder,
//	    httpmetrics.WithRouteResolver(func(r *http.Request) string {
//	        return myRouter.MatchedTemplate(r)
//	    }),
//	)(mux)
func WithRouteResolver(fn RouteResolver) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.resolveRoute = fn
		}
	}
}

// Middleware creates the recording middleware for the given [Recorder].
// Wrap your router with it; every completed request increments the request
// counter and observes its duration, labeled by route template, method, and
// status, unless the route matches the recorder's exclusion configuration.
//
// The middleware is purely observational: it never alters the handler's
// status, headers, or body. The observation runs in a deferred block, so a
// request is recorded exactly once on every exit path, including panics
// (the panic is re-raised after recording, with status 500 when the handler
// had not yet written a response).
//
// Example:
//
//	recorder := httpmetrics.MustNew("myapp")
//
//	r := chi.NewRouter()
//	r.Use(httpmetrics.Middleware(recorder))
//	r.Handle(httpmetrics.DefaultEndpoint, recorder.Handler())
//
//	http.ListenAndServe(":3000", r)
func Middleware(recorder *Recorder, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := newMiddlewareConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			defer func() {
				p := recover()

				status := rw.StatusCode()
				if p != nil && !rw.written {
					// Handler unwound before forming a response; the server
					// will not send anything useful, account it as a 500.
					status = http.StatusInternalServerError
				}

				// Resolved after the handler so the router has matched.
				route := cfg.resolveRoute(r)
				if !recorder.excluded(route) {
					recorder.observe(labelsFor(route, r.Method, status), time.Since(start).Seconds())
				}

				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// responseWriter wraps [http.ResponseWriter] to capture the status code.
// It also implements the optional interfaces ([http.Flusher], [http.Hijacker],
// [http.Pusher]) if the underlying ResponseWriter supports them.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// newResponseWriter creates a responseWriter wrapping the given http.ResponseWriter.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

// WriteHeader captures the status code and prevents duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write marks the response as written; an implicit header write counts as 200.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}

	return rw.ResponseWriter.Write(b)
}

// StatusCode returns the HTTP status code, defaulting to 200 when the handler
// returned without writing one (net/http sends 200 in that case).
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}

	return rw.statusCode
}

// Flush implements [http.Flusher] if the underlying ResponseWriter supports it.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements [http.Hijacker] for WebSocket support. Returns an error
// if the underlying ResponseWriter doesn't support hijacking.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}

	return nil, nil, fmt.Errorf("underlying ResponseWriter doesn't support Hijack")
}

// Push implements [http.Pusher] for HTTP/2 server push. Returns
// [http.ErrNotSupported] if the underlying ResponseWriter doesn't support it.
func (rw *responseWriter) Push(target string, opts *http.PushOptions) error {
	if p, ok := rw.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}

	return http.ErrNotSupported
}

// Unwrap returns the underlying ResponseWriter for [http.ResponseController] support.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
