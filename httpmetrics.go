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
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// DefaultEndpoint is the conventional path for the metrics exposition endpoint.
// Requests matching it are excluded from collection unless [WithoutExclusion]
// or [WithExcludeEndpoint] changes the exclusion endpoint.
const DefaultEndpoint = "/metrics"

// DefaultBuckets are the histogram boundaries for request duration in seconds.
// They mirror prometheus.DefBuckets and cover 5ms to 10s responses; the +Inf
// catch-all bucket is implicit.
var DefaultBuckets = prometheus.DefBuckets

// namespaceRegex validates namespaces against the Prometheus metric name
// charset. Compiled once at package initialization.
var namespaceRegex = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., the metrics server failed).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event (e.g., server started).
	EventInfo
	// EventDebug indicates a debug event.
	EventDebug
)

// Event represents an internal operational event from the httpmetrics package.
// Events report server lifecycle and exposition failures; per-request
// observation never emits events.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events. Implementations can log
// events, send them to monitoring systems, or take custom actions based on
// event type.
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the provided
// slog.Logger. This is the implementation used by [WithLogger].
//
// If logger is nil, returns a no-op handler that discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {} // no-op
	}

	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// Recorder owns the two request metrics and the registry they live in.
// It is the pair produced by [New]: the recording side feeds [Middleware],
// the registry side backs [Recorder.Handler] and [Recorder.Render].
// All methods are safe for concurrent use.
type Recorder struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64

	// endpoint is the exclusion endpoint; empty when exclusion is disabled.
	endpoint   string
	pathFilter *pathFilter

	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	eventHandler EventHandler

	serverAddr     string
	metricsServer  *http.Server
	serverMutex    sync.Mutex // protects metricsServer
	isStarted      atomic.Bool
	isShuttingDown atomic.Bool

	validationErrors []error // collected during option application
}

// New creates a [Recorder] for the given namespace with the given options.
// It validates the configuration and registers the two request metrics
// ({namespace}_http_requests_total and {namespace}_http_requests_duration_seconds)
// into a fresh registry, or into the one supplied via [WithRegistry].
//
// Registration is all-or-nothing: on any error New returns nil and leaves the
// registry exactly as it found it. Errors can be inspected with [errors.Is]
// against [ErrInvalidNamespace], [ErrInvalidBuckets], [ErrNameCollision], and
// [ErrInvalidPattern].
//
// For a version that panics on error, use [MustNew].
func New(namespace string, opts ...Option) (*Recorder, error) {
	recorder := newDefaultRecorder(namespace)

	for _, opt := range opts {
		opt(recorder)
	}

	if err := recorder.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := recorder.register(); err != nil {
		return nil, err
	}

	return recorder, nil
}

// MustNew creates a [Recorder] with the given options and panics if the
// configuration is invalid or registration fails. For error handling,
// use [New] instead.
func MustNew(namespace string, opts ...Option) *Recorder {
	recorder, err := New(namespace, opts...)
	if err != nil {
		panic(fmt.Sprintf("httpmetrics: %v", err))
	}

	return recorder
}

// newDefaultRecorder creates a Recorder with default values.
func newDefaultRecorder(namespace string) *Recorder {
	return &Recorder{
		namespace:  namespace,
		buckets:    DefaultBuckets,
		endpoint:   DefaultEndpoint,
		pathFilter: newPathFilter(),
		registry:   prometheus.NewRegistry(),
	}
}

// validate checks that the configuration is valid.
func (r *Recorder) validate() error {
	// Errors collected during option application (bad regexes, nil registry)
	if len(r.validationErrors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(r.validationErrors...))
	}

	if r.namespace == "" {
		return fmt.Errorf("%w: namespace cannot be empty", ErrInvalidNamespace)
	}
	if !namespaceRegex.MatchString(r.namespace) {
		return fmt.Errorf("%w: namespace %q must match %s", ErrInvalidNamespace, r.namespace, namespaceRegex)
	}

	if len(r.buckets) == 0 {
		return fmt.Errorf("%w: at least one bucket boundary is required", ErrInvalidBuckets)
	}
	for i, b := range r.buckets {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("%w: boundary %v at index %d is not finite (+Inf is implicit)", ErrInvalidBuckets, b, i)
		}
		if b <= 0 {
			return fmt.Errorf("%w: boundary %v at index %d is not positive", ErrInvalidBuckets, b, i)
		}
		if i > 0 && b <= r.buckets[i-1] {
			return fmt.Errorf("%w: boundaries must be strictly increasing, got %v after %v", ErrInvalidBuckets, b, r.buckets[i-1])
		}
	}

	return nil
}

// register creates and registers both request metrics. If the second
// registration fails the first collector is removed again, so a supplied
// registry is never left partially populated.
func (r *Recorder) register() error {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   r.namespace,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: r.constLabels,
		},
		labelNames,
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   r.namespace,
			Name:        "http_requests_duration_seconds",
			Help:        "HTTP request duration in seconds for all requests",
			Buckets:     r.buckets,
			ConstLabels: r.constLabels,
		},
		labelNames,
	)

	if err := r.registry.Register(requestsTotal); err != nil {
		return fmt.Errorf("%w: %v", ErrNameCollision, err)
	}
	if err := r.registry.Register(requestDuration); err != nil {
		r.registry.Unregister(requestsTotal)
		return fmt.Errorf("%w: %v", ErrNameCollision, err)
	}

	r.requestsTotal = requestsTotal
	r.requestDuration = requestDuration

	return nil
}

// observe records one completed request. Called exactly once per observed
// request by the middleware; both metrics share the same label tuple.
func (r *Recorder) observe(labels LabelSet, seconds float64) {
	r.requestDuration.WithLabelValues(labels.Endpoint, labels.Method, labels.Status).Observe(seconds)
	r.requestsTotal.WithLabelValues(labels.Endpoint, labels.Method, labels.Status).Inc()
}

// excluded reports whether a request matched to the given route template is
// excluded from collection.
func (r *Recorder) excluded(route string) bool {
	if r.endpoint != "" && route == r.endpoint {
		return true
	}

	return r.pathFilter.shouldExclude(route)
}

// Registry returns the underlying Prometheus registry. Use it to register
// your own application metrics next to the request metrics; they will show up
// in [Recorder.Handler] and [Recorder.Render] output.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Namespace returns the configured namespace.
func (r *Recorder) Namespace() string {
	return r.namespace
}

// Endpoint returns the exclusion endpoint, or empty string when exclusion
// is disabled via [WithoutExclusion].
func (r *Recorder) Endpoint() string {
	return r.endpoint
}

// Handler returns an [http.Handler] serving the registry in Prometheus text
// exposition format. The host application mounts it at a path of its choice,
// conventionally [DefaultEndpoint]:
//
//	mux.Handle(httpmetrics.DefaultEndpoint, recorder.Handler())
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorLog:      handlerErrorLogger{recorder: r},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Render returns the registry's current content in Prometheus text exposition
// format. With no intervening observations, successive calls return
// byte-identical text (no timestamps are embedded).
func (r *Recorder) Render() (string, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, family); err != nil {
			return "", fmt.Errorf("encode metric family %q: %w", family.GetName(), err)
		}
	}

	return buf.String(), nil
}

// handlerErrorLogger routes promhttp errors through the event handler.
type handlerErrorLogger struct {
	recorder *Recorder
}

func (l handlerErrorLogger) Println(v ...any) {
	l.recorder.emitError("metrics exposition error", "detail", fmt.Sprint(v...))
}

// emitError emits an error event if an event handler is configured.
func (r *Recorder) emitError(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

// emitInfo emits an info event if an event handler is configured.
func (r *Recorder) emitInfo(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

// emitDebug emits a debug event if an event handler is configured.
func (r *Recorder) emitDebug(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}
