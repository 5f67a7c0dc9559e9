package logger

import (
	"context"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"golang.org/x/exp/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 5
	fileMaxAgeDays = 14
)

func New(env string) *slog.Logger {
	return slog.New(handlerFor(env, os.Stdout))
}

// NewWithFile дублирует записи в файл с ротацией.
// Пустой path равносилен New.
func NewWithFile(env, path string) (*slog.Logger, io.Closer) {
	if path == "" {
		return New(env), io.NopCloser(nil)
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: levelFor(env)})
	return slog.New(&teeHandler{handlers: []slog.Handler{handlerFor(env, os.Stdout), fileHandler}}), file
}

func handlerFor(env string, w io.Writer) slog.Handler {
	if env == envLocal {
		return newPrettyHandler(w, slog.LevelDebug)
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(env)})
}

func levelFor(env string) slog.Level {
	switch env {
	case envLocal, envDev:
		return slog.LevelDebug
	case envProd:
		return slog.LevelInfo
	}
	return slog.LevelInfo
}

func setupPrettySlog() *slog.Logger {
	return slog.New(newPrettyHandler(os.Stdout, slog.LevelDebug))
}

type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: hs}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: hs}
}
