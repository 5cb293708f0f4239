// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server wires the dataset database, task tracker, and dispatch
// broker together behind a net.Listener, and exposes Prometheus metrics
// for request handling.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ursadb_requests_total",
			Help: "Commands executed, by command kind and outcome.",
		},
		[]string{"command", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ursadb_request_duration_seconds",
			Help:    "Command execution latency, by command kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ursadb_active_connections",
			Help: "Client connections currently accepted by the broker.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(activeConnections)
}
