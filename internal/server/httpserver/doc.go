// Package httpserver serves the operational HTTP endpoints of respkv:
//
//   - GET /metrics: Prometheus exposition
//   - GET /healthz: 200 while the store actor is running, 503 otherwise
//   - GET /version: build information as JSON
package httpserver
