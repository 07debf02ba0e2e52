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

// Package httpmetrics instruments HTTP request handling with low-cardinality
// Prometheus metrics: a request counter and a request duration histogram,
// both labeled by route template, method, and status.
//
// # Basic Usage
//
//	recorder := httpmetrics.MustNew("myapp")
//
//	r := chi.NewRouter()
//	r.Use(httpmetrics.Middleware(recorder))
//	r.Get("/hello/{name}", helloHandler)
//	r.Handle(httpmetrics.DefaultEndpoint, recorder.Handler())
//
//	http.ListenAndServe(":3000", r)
//
// Two metrics are registered per [Recorder]:
//
//	{namespace}_http_requests_total{endpoint, method, status}
//	{namespace}_http_requests_duration_seconds{endpoint, method, status}
//
// # Cardinality
//
// The endpoint label is the router's route template ("/hello/{name}"), not
// the concrete request path, so sample count is bounded by routes x methods x
// status codes rather than by distinct URLs. Route templates are resolved
// from chi or net/http ServeMux automatically; other routers plug in via
// [WithRouteResolver]. Requests to the exclusion endpoint ([DefaultEndpoint]
// unless reconfigured) are not observed at all.
//
// # Exactly-Once Accounting
//
// [Middleware] records each completed request exactly once, in a deferred
// block tied to request completion. Error responses, early returns, and
// handler panics are all observed; the middleware never alters the response.
//
// # Configuration
//
// [New] validates its configuration up front and registers both metrics
// all-or-nothing; see [ErrInvalidNamespace], [ErrInvalidBuckets],
// [ErrNameCollision], and [ErrInvalidPattern].
//
// # Thread Safety
//
// All [Recorder] methods and the middleware are safe for concurrent use.
// Sample updates are commutative increments, so no ordering is required
// across concurrent requests.
package httpmetrics
