/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

// Package metrics exposes the server's Prometheus collectors: connection
// count, collective latency and KV store size. Every call here is cheap and
// safe to invoke directly from the progress goroutine's hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Server holds the collectors registered for one server instance.
type Server struct {
	OpenConnections prometheus.Gauge
	FenceLatency    *prometheus.HistogramVec
	KVEntries       *prometheus.GaugeVec
}

// NewServer builds and registers every collector against reg. Passing
// prometheus.NewRegistry() keeps a server instance's metrics isolated from
// the default global registry, which matters for tests that build more than
// one Server in the same process.
func NewServer(reg prometheus.Registerer) *Server {
	s := &Server{
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pmix",
			Subsystem: "server",
			Name:      "open_connections",
			Help:      "Number of currently connected peers.",
		}),
		FenceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pmix",
			Subsystem: "server",
			Name:      "collective_latency_seconds",
			Help:      "Time from a collective's first local joiner to its host callback completing.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		KVEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pmix",
			Subsystem: "server",
			Name:      "kv_entries",
			Help:      "Number of committed key/value entries held for a namespace.",
		}, []string{"namespace"}),
	}

	reg.MustRegister(s.OpenConnections, s.FenceLatency, s.KVEntries)
	return s
}

// ObserveFenceLatency records how long a collective of the given kind took
// from first local joiner to host-callback completion.
func (s *Server) ObserveFenceLatency(kind string, seconds float64) {
	s.FenceLatency.WithLabelValues(kind).Observe(seconds)
}

// SetKVEntries reports the current entry count for a namespace, replacing
// any previously reported value.
func (s *Server) SetKVEntries(namespace string, count int) {
	s.KVEntries.WithLabelValues(namespace).Set(float64(count))
}

// SetOpenConnections reports the current peer count.
func (s *Server) SetOpenConnections(n int64) {
	s.OpenConnections.Set(float64(n))
}
