// Package main hosts the slot watcher entrypoint.
//
// Architecture overview:
//   - Monitor: internal/monitor.Monitor fetches the appointment page on a schedule (faster inside the configured
//     peak window), classifies it with the phrase heuristic in internal/detector and records every cycle in the
//     internal/status.Store.
//   - Notifications: when slots appear and notifications are enabled, internal/notify.Dispatcher sends a Telegram
//     message and one e-mail per recipient, at most once per cooldown.
//   - Dashboard: internal/api.Server serves the HTML dashboard, the status JSON, a throttled test trigger and the
//     pause toggle, plus /healthz, /readyz and /metrics.
//   - Plumbing: Viper (with .env support) populates config; zap provides structured logging; Prometheus
//     collectors track checks, fetches, notifications and HTTP traffic.
//
// Quick checklist:
//   - Credentials: TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, SMTP_EMAIL, SMTP_PASSWORD (env or .env file).
//   - Port: PORT or WATCHER_SERVER_PORT. Every other key is WATCHER_<SECTION>_<KEY>.
//   - Run locally: go run ./cmd/slotwatcher -config config.yaml (or rely solely on env overrides).
package main
