// Package api hosts the dashboard HTTP server. Notable routes:
//   - GET / serves the self-refreshing dashboard page.
//   - GET|POST /api/estado returns the status snapshot.
//   - GET|POST /api/test sends a throttled test notification.
//   - POST /api/toggle pauses or resumes notifications.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus scraping.
package api
