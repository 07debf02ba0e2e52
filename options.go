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
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Option defines functional options for [Recorder] configuration.
type Option func(*Recorder)

// WithBuckets sets custom histogram bucket boundaries for the request duration
// metric, in seconds. Boundaries must be strictly increasing, finite, and
// positive; the +Inf catch-all is implicit and must not be supplied.
// If not set, [DefaultBuckets] is used.
//
// Example:
//
//	recorder := httpmetrics.MustNew("myapp",
//	    httpmetrics.WithBuckets(0.01, 0.05, 0.1, 0.5, 1, 5),
//	)
func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		r.buckets = buckets
	}
}

// WithRegistry registers the request metrics into an existing registry instead
// of a fresh one. Use this to merge request metrics with metrics the
// application already exposes. [New] fails with [ErrNameCollision] if the
// registry already holds a metric with the same fully-qualified name, and
// leaves the registry untouched in that case.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry == nil {
			r.validationErrors = append(r.validationErrors,
				fmt.Errorf("supplied registry must not be nil"))
			return
		}
		r.registry = registry
	}
}

// WithConstLabels adds constant labels to both request metrics, on top of the
// endpoint/method/status labels. Useful for identifying the emitting instance
// (e.g. region or replica) across an aggregated scrape.
func WithConstLabels(labels map[string]string) Option {
	return func(r *Recorder) {
		r.constLabels = prometheus.Labels(labels)
	}
}

// WithExcludeEndpoint replaces the default exclusion endpoint
// ([DefaultEndpoint]). Requests whose matched route template equals this path
// are observed by neither metric. The path is normalized to a leading slash.
func WithExcludeEndpoint(path string) Option {
	return func(r *Recorder) {
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		r.endpoint = path
	}
}

// WithoutExclusion disables endpoint exclusion entirely: requests to the
// exposition endpoint are recorded like any other request.
func WithoutExclusion() Option {
	return func(r *Recorder) {
		r.endpoint = ""
	}
}

// WithServer enables the built-in metrics server on the given address
// (e.g. ":9090"). The server is started by [Recorder.Start] and serves
// [Recorder.Handler] at the exclusion endpoint path, or [DefaultEndpoint]
// when exclusion is disabled. Without this option, Start is a no-op and the
// application mounts [Recorder.Handler] itself.
func WithServer(addr string) Option {
	return func(r *Recorder) {
		if addr != "" && !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		r.serverAddr = addr
	}
}

// WithEventHandler sets a custom [EventHandler] for internal operational
// events. Use this for advanced cases like custom alerting or non-slog
// logging systems.
func WithEventHandler(handler EventHandler) Option {
	return func(r *Recorder) {
		r.eventHandler = handler
	}
}

// WithLogger sets the logger for internal operational events using the default
// event handler. This is a convenience wrapper around [WithEventHandler] that
// logs events to the provided [slog.Logger].
//
// Example:
//
//	recorder := httpmetrics.MustNew("myapp",
//	    httpmetrics.WithLogger(slog.Default()),
//	)
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}
