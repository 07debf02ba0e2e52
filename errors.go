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

import "errors"

// Configuration errors returned by [New]. All of them occur before anything is
// registered; a failed New never leaves collectors behind in the registry.
// Use [errors.Is] to distinguish them:
//
//	_, err := httpmetrics.New("my app")
//	if errors.Is(err, httpmetrics.ErrInvalidNamespace) {
//	    // fix the namespace
//	}
var (
	// ErrInvalidNamespace indicates an empty namespace or one containing
	// characters not allowed in a Prometheus metric name.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrInvalidBuckets indicates custom histogram buckets that are empty,
	// not strictly increasing, or contain non-finite or non-positive values.
	ErrInvalidBuckets = errors.New("invalid histogram buckets")

	// ErrNameCollision indicates that a metric with the same fully-qualified
	// name is already registered in the supplied registry.
	ErrNameCollision = errors.New("metric name collision")

	// ErrInvalidPattern indicates an exclusion regex that failed to compile.
	ErrInvalidPattern = errors.New("invalid exclusion pattern")
)
