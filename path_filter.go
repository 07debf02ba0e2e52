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
	"fmt"
	"regexp"
	"strings"
)

// pathFilter handles additional exclusion logic beyond the exclusion endpoint.
// It supports exact paths, prefixes, and regex patterns, all matched against
// the resolved route template.
type pathFilter struct {
	paths    map[string]bool
	prefixes []string
	patterns []*regexp.Regexp
}

// newPathFilter creates a new path filter.
func newPathFilter() *pathFilter {
	return &pathFilter{
		paths: make(map[string]bool),
	}
}

// addPaths adds exact paths to exclude.
func (pf *pathFilter) addPaths(paths ...string) {
	for _, p := range paths {
		pf.paths[p] = true
	}
}

// addPrefixes adds path prefixes to exclude.
func (pf *pathFilter) addPrefixes(prefixes ...string) {
	pf.prefixes = append(pf.prefixes, prefixes...)
}

// addPatterns adds compiled regex patterns to exclude.
func (pf *pathFilter) addPatterns(patterns ...*regexp.Regexp) {
	pf.patterns = append(pf.patterns, patterns...)
}

// shouldExclude returns true if the route should be excluded from metrics.
func (pf *pathFilter) shouldExclude(route string) bool {
	if pf == nil {
		return false
	}

	if pf.paths[route] {
		return true
	}

	for _, prefix := range pf.prefixes {
		if strings.HasPrefix(route, prefix) {
			return true
		}
	}

	for _, pattern := range pf.patterns {
		if pattern.MatchString(route) {
			return true
		}
	}

	return false
}

// WithExcludePaths excludes additional exact route templates from metrics
// collection, on top of the exclusion endpoint. Useful for health checks.
//
// Example:
//
//	recorder := httpmetrics.MustNew("myapp",
//	    httpmetrics.WithExcludePaths("/health", "/ready"),
//	)
func WithExcludePaths(paths ...string) Option {
	return func(r *Recorder) {
		r.pathFilter.addPaths(paths...)
	}
}

// WithExcludePrefixes excludes routes with the given prefixes from metrics
// collection. Useful for excluding entire hierarchies like /debug/.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(r *Recorder) {
		r.pathFilter.addPrefixes(prefixes...)
	}
}

// WithExcludePatterns excludes routes matching the given regex patterns from
// metrics collection. Patterns are compiled once during configuration; an
// invalid pattern makes [New] fail with [ErrInvalidPattern].
//
// Example:
//
//	recorder, err := httpmetrics.New("myapp",
//	    httpmetrics.WithExcludePatterns(`^/v[0-9]+/internal/`),
//	)
func WithExcludePatterns(patterns ...string) Option {
	return func(r *Recorder) {
		for _, pattern := range patterns {
			compiled, err := regexp.Compile(pattern)
			if err != nil {
				r.validationErrors = append(r.validationErrors,
					fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
				continue
			}
			r.pathFilter.addPatterns(compiled)
		}
	}
}
