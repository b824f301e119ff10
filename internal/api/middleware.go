package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// quietOperations are polled by dashboards and scrapers; their successful
// requests are logged at debug.
var quietOperations = map[string]bool{
	"health-check": true,
	"get-version":  true,
	"list-jobs":    true,
	"query-logs":   true,
}

// requestLogger returns a middleware that logs each debug API request with
// its operation and, for job routes, the pid asked for.
//
// A lookup of a pid that is no longer registered is routine once the reaper
// has settled the job, so it stays at debug instead of warn.
func requestLogger(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		attrs := []slog.Attr{
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.URL().Path),
		}
		opID := ""
		if op := ctx.Operation(); op != nil {
			opID = op.OperationID
			attrs = append(attrs, slog.String("operation", opID))
		}
		if pid := ctx.Param("pid"); pid != "" {
			attrs = append(attrs, slog.String("pid", pid))
		}
		if query := ctx.URL().RawQuery; query != "" {
			attrs = append(attrs, slog.String("query", query))
		}

		if opID == "events-stream" {
			logger.LogAttrs(ctx.Context(), slog.LevelInfo, "Event stream opened",
				append(attrs, slog.String("remote_addr", ctx.RemoteAddr()))...)
		}

		next(ctx)

		status := ctx.Status()
		attrs = append(attrs,
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)

		level := slog.LevelInfo
		message := "Debug API request"
		switch {
		case opID == "events-stream":
			message = "Event stream closed"
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status == http.StatusNotFound && opID == "get-job":
			level = slog.LevelDebug
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		case quietOperations[opID]:
			level = slog.LevelDebug
		}
		logger.LogAttrs(ctx.Context(), level, message, attrs...)
	}
}
