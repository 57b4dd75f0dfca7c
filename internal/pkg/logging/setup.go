package logging

import (
	"context"
	"log/slog"
	"os"
)

// Setup configures the global slog logger for a service. Level is parsed
// from the config string ("debug", "info", "warn", "error"); anything else
// falls back to info.
func Setup(level string, serviceName string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})

	logger := slog.New(&MultiHandler{handlers: []slog.Handler{textHandler}})
	logger = logger.With("service", serviceName)
	slog.SetDefault(logger)

	return logger
}

// MultiHandler fans one record out to several handlers. Kept as the handler
// root so a remote sink can be attached next to stdout without touching call
// sites.
type MultiHandler struct {
	handlers []slog.Handler
}

// Attach adds another handler to the fan-out.
func (m *MultiHandler) Attach(h slog.Handler) {
	m.handlers = append(m.handlers, h)
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var lastErr error
	for _, h := range m.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}
