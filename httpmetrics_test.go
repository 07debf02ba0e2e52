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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatherFamily returns the named metric family from the recorder's registry,
// or nil if no sample of it exists yet.
func gatherFamily(t *testing.T, recorder *Recorder, name string) *dto.MetricFamily {
	t.Helper()

	families, err := recorder.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}

	return nil
}

// findSample returns the metric with the given label tuple from a family,
// or nil if absent.
func findSample(family *dto.MetricFamily, labels LabelSet) *dto.Metric {
	if family == nil {
		return nil
	}

	want := map[string]string{"endpoint": labels.Endpoint, "method": labels.Method, "status": labels.Status}
	for _, metric := range family.GetMetric() {
		matched := 0
		for _, pair := range metric.GetLabel() {
			if want[pair.GetName()] == pair.GetValue() {
				matched++
			}
		}
		if matched == len(want) {
			return metric
		}
	}

	return nil
}

func TestMetricNames(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")
	recorder.observe(labelsFor("/", "GET", 200), 0.01)

	families, err := recorder.registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 2)

	names := []string{families[0].GetName(), families[1].GetName()}
	assert.Contains(t, names, "myapp_http_requests_total")
	assert.Contains(t, names, "myapp_http_requests_duration_seconds")
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")
	labels := labelsFor("/items/{id}", "GET", 200)

	recorder.observe(labels, 0.3)

	family := gatherFamily(t, recorder, "myapp_http_requests_duration_seconds")
	require.NotNil(t, family)
	sample := findSample(family, labels)
	require.NotNil(t, sample)

	histogram := sample.GetHistogram()
	assert.Equal(t, uint64(1), histogram.GetSampleCount())
	assert.InDelta(t, 0.3, histogram.GetSampleSum(), 1e-9)

	// Every boundary >= 0.3 holds the observation, everything below is empty.
	for _, bucket := range histogram.GetBucket() {
		if bucket.GetUpperBound() >= 0.3 {
			assert.Equal(t, uint64(1), bucket.GetCumulativeCount(),
				"bucket le=%v", bucket.GetUpperBound())
		} else {
			assert.Equal(t, uint64(0), bucket.GetCumulativeCount(),
				"bucket le=%v", bucket.GetUpperBound())
		}
	}

	// A second, faster observation lands in all buckets from its own boundary up.
	recorder.observe(labels, 0.05)

	family = gatherFamily(t, recorder, "myapp_http_requests_duration_seconds")
	sample = findSample(family, labels)
	histogram = sample.GetHistogram()
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 0.35, histogram.GetSampleSum(), 1e-9)

	for _, bucket := range histogram.GetBucket() {
		switch {
		case bucket.GetUpperBound() >= 0.3:
			assert.Equal(t, uint64(2), bucket.GetCumulativeCount(), "bucket le=%v", bucket.GetUpperBound())
		case bucket.GetUpperBound() >= 0.05:
			assert.Equal(t, uint64(1), bucket.GetCumulativeCount(), "bucket le=%v", bucket.GetUpperBound())
		default:
			assert.Equal(t, uint64(0), bucket.GetCumulativeCount(), "bucket le=%v", bucket.GetUpperBound())
		}
	}
}

func TestCounterAndHistogramShareLabelTuple(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")
	labels := labelsFor("/hello/{name}", "GET", 200)

	recorder.observe(labels, 0.01)
	recorder.observe(labels, 0.02)

	counter := findSample(gatherFamily(t, recorder, "myapp_http_requests_total"), labels)
	require.NotNil(t, counter)
	assert.Equal(t, float64(2), counter.GetCounter().GetValue())

	histogram := findSample(gatherFamily(t, recorder, "myapp_http_requests_duration_seconds"), labels)
	require.NotNil(t, histogram)
	assert.Equal(t, uint64(2), histogram.GetHistogram().GetSampleCount())
}

func TestRenderIdempotent(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")
	recorder.observe(labelsFor("/", "GET", 200), 0.01)
	recorder.observe(labelsFor("/hello/{name}", "POST", 404), 0.02)

	first, err := recorder.Render()
	require.NoError(t, err)
	second, err := recorder.Render()
	require.NoError(t, err)

	assert.Equal(t, first, second, "rendering with no intervening requests must be byte-identical")
}

func TestRenderExpositionContent(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")
	recorder.observe(labelsFor("/", "GET", 200), 0.01)
	recorder.observe(labelsFor("/hello/{name}", "GET", 200), 0.01)
	recorder.observe(labelsFor("/hello/{name}", "GET", 200), 0.01)

	text, err := recorder.Render()
	require.NoError(t, err)

	assert.Contains(t, text, "# HELP myapp_http_requests_total Total number of HTTP requests")
	assert.Contains(t, text, "# TYPE myapp_http_requests_total counter")
	assert.Contains(t, text, `myapp_http_requests_total{endpoint="/",method="GET",status="200"} 1`)
	assert.Contains(t, text, `myapp_http_requests_total{endpoint="/hello/{name}",method="GET",status="200"} 2`)
	assert.Contains(t, text, "# TYPE myapp_http_requests_duration_seconds histogram")
	assert.Contains(t, text, `myapp_http_requests_duration_seconds_count{endpoint="/",method="GET",status="200"} 1`)
	assert.Contains(t, text, `myapp_http_requests_duration_seconds_count{endpoint="/hello/{name}",method="GET",status="200"} 2`)
}

func TestConstLabels(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp", WithConstLabels(map[string]string{"region": "eu"}))
	recorder.observe(labelsFor("/", "GET", 200), 0.01)

	text, err := recorder.Render()
	require.NoError(t, err)
	assert.Contains(t, text, `region="eu"`)
}

func TestRegistrySharedWithCustomMetrics(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")

	jobs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Jobs processed by the worker",
	})
	require.NoError(t, recorder.Registry().Register(jobs))
	jobs.Add(3)
	recorder.observe(labelsFor("/", "GET", 200), 0.01)

	text, err := recorder.Render()
	require.NoError(t, err)
	assert.Contains(t, text, "jobs_processed_total 3")
	assert.Contains(t, text, "myapp_http_requests_total")
}

func TestEndpointAccessors(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")
	assert.Equal(t, DefaultEndpoint, recorder.Endpoint())
	assert.Equal(t, DefaultEndpoint, recorder.MetricsPath())

	custom := TestingRecorder(t, "myapp", WithExcludeEndpoint("internal/metrics"))
	assert.Equal(t, "/internal/metrics", custom.Endpoint())

	open := TestingRecorder(t, "myapp", WithoutExclusion())
	assert.Equal(t, "", open.Endpoint())
	assert.Equal(t, DefaultEndpoint, open.MetricsPath())
}

func TestDefaultBuckets(t *testing.T) {
	t.Parallel()

	recorder := TestingRecorder(t, "myapp")
	recorder.observe(labelsFor("/", "GET", 200), 0.01)

	family := gatherFamily(t, recorder, "myapp_http_requests_duration_seconds")
	require.NotNil(t, family)
	sample := findSample(family, labelsFor("/", "GET", 200))
	require.NotNil(t, sample)

	buckets := sample.GetHistogram().GetBucket()
	require.Len(t, buckets, len(DefaultBuckets))
	for i, bucket := range buckets {
		assert.Equal(t, DefaultBuckets[i], bucket.GetUpperBound())
	}
}
