/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"net/http"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marcus-qen/gatewayposture/internal/metrics"
)

// serveMetrics starts a background HTTP listener exposing
// internal/metrics.Registry in Prometheus text exposition format, the same
// "start a plain listener in a goroutine, log on failure" shape the
// teacher's own webhook trigger listener uses rather than standing up a
// full metrics-server framework this CLI has no other use for.
func serveMetrics(addr string, log logr.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	go func() {
		log.Info("starting metrics listener", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error(err, "metrics listener failed")
		}
	}()
}
