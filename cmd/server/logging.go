package main

import (
	"context"
	"log/slog"
	"os"

	"coipond/internal/config"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// maxLogFiles is how many timestamped log files LOG_DIR keeps
const maxLogFiles = 10

// newLogger builds the process logger: colored text on a terminal in dev,
// JSON everywhere else. With LOG_DIR set, JSON lines are also written to a file.
// The returned func closes the log file, if any.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if cfg.Environment == "dev" {
		level = slog.LevelDebug
	}

	var console slog.Handler
	if cfg.Environment == "dev" {
		console = tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		})
	} else {
		console = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	if cfg.LogDir == "" {
		return slog.New(console), func() {}
	}

	f, err := config.SetupLogFile(cfg.LogDir, maxLogFiles)
	if err != nil {
		logger := slog.New(console)
		logger.Warn("file logging disabled", "dir", cfg.LogDir, "error", err)
		return logger, func() {}
	}

	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(&multiHandler{handlers: []slog.Handler{console, file}}), func() { _ = f.Close() }
}

// multiHandler sends every record to all handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
