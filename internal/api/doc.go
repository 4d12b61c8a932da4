// Package api hosts the ops HTTP server. Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the scheduler snapshot.
//   - GET /v1/products for the product catalog.
package api
