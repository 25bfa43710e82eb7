/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics mirrors reporting.Reporter's counters onto Prometheus
// collectors, the way the teacher's prometheus package wraps client_golang
// for its own request/error counters, so a running benchmark can be scraped
// live instead of only reported at the end.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors holds every metric the engine publishes, and implements
// reporting.Sink so cmd/loadgen can pass it straight to reporting.New and
// have every Record* call update these collectors too. One set is
// registered per process, shared by every IOThread.
type Collectors struct {
	CompletedRequests    prometheus.Counter
	SuccessfulRequests   prometheus.Counter
	UnsuccessfulRequests prometheus.Counter
	SocketErrors         prometheus.Counter
	ConnectionsOpened    prometheus.Counter
	BytesRead            prometheus.Counter
	BytesWritten         prometheus.Counter
	LatencySeconds       prometheus.Histogram
	ActiveConnections    prometheus.Gauge
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		CompletedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "requests_completed_total",
			Help:      "Total requests that received a response.",
		}),
		SuccessfulRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "requests_successful_total",
			Help:      "Total requests that received a 1xx/2xx/3xx response.",
		}),
		UnsuccessfulRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "requests_unsuccessful_total",
			Help:      "Total requests that received a 4xx/5xx response.",
		}),
		SocketErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "socket_errors_total",
			Help:      "Total transport-level failures (dial, write, read, premature EOF).",
		}),
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "connections_opened_total",
			Help:      "Total TCP connections successfully established.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "bytes_read_total",
			Help:      "Total bytes read from target sockets.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loadgen",
			Name:      "bytes_written_total",
			Help:      "Total bytes written to target sockets.",
		}),
		LatencySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loadgen",
			Name:      "request_latency_seconds",
			Help:      "Per-request round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loadgen",
			Name:      "connections_active",
			Help:      "Connections currently dialed and cycling requests.",
		}),
	}

	reg.MustRegister(
		c.CompletedRequests,
		c.SuccessfulRequests,
		c.UnsuccessfulRequests,
		c.SocketErrors,
		c.ConnectionsOpened,
		c.BytesRead,
		c.BytesWritten,
		c.LatencySeconds,
		c.ActiveConnections,
	)
	return c
}

// Handler returns the HTTP handler a caller mounts at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// AddCompleted implements reporting.Sink.
func (c *Collectors) AddCompleted(successful bool) {
	c.CompletedRequests.Inc()
	if successful {
		c.SuccessfulRequests.Inc()
	} else {
		c.UnsuccessfulRequests.Inc()
	}
}

// AddSocketError implements reporting.Sink.
func (c *Collectors) AddSocketError() {
	c.SocketErrors.Inc()
}

// AddConnectionOpened implements reporting.Sink.
func (c *Collectors) AddConnectionOpened() {
	c.ConnectionsOpened.Inc()
}

// AddBytes implements reporting.Sink.
func (c *Collectors) AddBytes(read, written int64) {
	c.BytesRead.Add(float64(read))
	c.BytesWritten.Add(float64(written))
}

// ObserveLatencySeconds implements reporting.Sink.
func (c *Collectors) ObserveLatencySeconds(seconds float64) {
	c.LatencySeconds.Observe(seconds)
}
