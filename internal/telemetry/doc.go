// Package telemetry обеспечивает наблюдаемость контроллера.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Контроллер экспортирует метрики на /metrics endpoint основного
// HTTP-сервера; формат логов единый для всего процесса.
package telemetry
