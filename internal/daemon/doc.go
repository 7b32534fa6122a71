// Package daemon wires the long-running pieces together: it holds the
// single-instance lock, runs the worker pool, and serves the read-only HTTP
// API and Prometheus metrics endpoint.
package daemon
