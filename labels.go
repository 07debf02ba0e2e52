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
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// labelNames is the label tuple shared by both request metrics. Keeping the
// counter and histogram on the same tuple means every sample of one is
// co-addressable in the other.
var labelNames = []string{"endpoint", "method", "status"}

// LabelSet is the per-request label tuple. The endpoint is the route template
// as matched by the router (e.g. "/hello/{name}"), never the concrete path,
// so cardinality stays bounded by route count.
type LabelSet struct {
	Endpoint string
	Method   string
	Status   string
}

// labelsFor derives the label tuple from a completed request. It is a pure
// function: an unmatched route or unusual status still yields a defined
// LabelSet, never an error.
func labelsFor(route, method string, status int) LabelSet {
	return LabelSet{
		Endpoint: route,
		Method:   strings.ToUpper(method),
		Status:   strconv.Itoa(status),
	}
}

// RouteResolver reports the matched route template for a request. It is the
// extension point for routers not understood by [defaultRouteResolver]; wire
// one in with [WithRouteResolver]. Resolvers run after the handler completes,
// when the router has populated its match state.
type RouteResolver func(*http.Request) string

// defaultRouteResolver resolves the route template for chi and net/http
// ServeMux routers, falling back to the raw URL path when no match is
// available (e.g. 404s). The raw-path fallback mirrors upstream conventions:
// unmatched traffic is typically low-volume and keeping the concrete path
// makes it visible.
func defaultRouteResolver(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	// net/http ServeMux patterns look like "GET /hello/{name}"; strip the
	// method prefix so the endpoint label is a bare path template.
	if pattern := r.Pattern; pattern != "" {
		if i := strings.IndexByte(pattern, ' '); i >= 0 {
			return pattern[i+1:]
		}
		return pattern
	}

	return r.URL.Path
}
