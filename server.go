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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// MetricsPath returns the path the built-in server mounts [Recorder.Handler]
// at: the exclusion endpoint, or [DefaultEndpoint] when exclusion is disabled.
func (r *Recorder) MetricsPath() string {
	if r.endpoint != "" {
		return r.endpoint
	}

	return DefaultEndpoint
}

// Start starts the built-in metrics server if one was configured with
// [WithServer]. The context bounds the lifetime of served requests.
// This method is idempotent; calling it multiple times is safe.
//
// Example:
//
//	recorder := httpmetrics.MustNew("myapp", httpmetrics.WithServer(":9090"))
//	if err := recorder.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer recorder.Shutdown(context.Background())
func (r *Recorder) Start(ctx context.Context) error {
	if r.serverAddr == "" {
		return nil
	}

	if r.isShuttingDown.Load() {
		return errors.New("recorder is shut down")
	}

	// Idempotent: only start once
	if !r.isStarted.CompareAndSwap(false, true) {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(r.MetricsPath(), r.Handler())

	server := &http.Server{
		Addr:         r.serverAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	r.serverMutex.Lock()
	r.metricsServer = server
	r.serverMutex.Unlock()

	go func() {
		r.emitInfo("metrics server starting",
			"address", server.Addr+r.MetricsPath(),
			"path", r.MetricsPath())

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.serverMutex.Lock()
			r.metricsServer = nil
			r.serverMutex.Unlock()
			r.emitError("metrics server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the built-in metrics server, if running.
// This method is idempotent; only the first call performs the shutdown.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	r.serverMutex.Lock()
	server := r.metricsServer
	r.metricsServer = nil
	r.serverMutex.Unlock()

	if server == nil {
		return nil
	}

	r.emitDebug("shutting down metrics server")
	if err := server.Shutdown(ctx); err != nil {
		r.emitError("error shutting down metrics server", "error", err)
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	r.emitDebug("metrics server shut down")

	return nil
}
