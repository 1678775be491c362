package logging

import (
	"context"
	"log/slog"

	"github.com/sarchlab/cosim/hooking"
	"github.com/sarchlab/cosim/naming"
)

// LogHook writes every hook it receives into a logger.
type LogHook struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogHook creates a LogHook that logs at debug level.
func NewLogHook(logger *slog.Logger) *LogHook {
	return &LogHook{
		logger: logger,
		level:  slog.LevelDebug,
	}
}

// WithLevel changes the level the hook logs at.
func (h *LogHook) WithLevel(level slog.Level) *LogHook {
	h.level = level
	return h
}

// Func logs the hook position, the time, and the name of the object raising
// the hook.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	if !h.logger.Enabled(context.Background(), h.level) {
		return
	}

	attrs := []any{
		"pos", ctx.Pos.Name,
		"time", ctx.Now,
	}

	if named, ok := ctx.Domain.(naming.Named); ok {
		attrs = append(attrs, "domain", named.Name())
	}

	if ctx.Item != nil {
		attrs = append(attrs, "item", ctx.Item)
	}

	if ctx.Detail != nil {
		attrs = append(attrs, "detail", ctx.Detail)
	}

	h.logger.Log(context.Background(), h.level, "hook", attrs...)
}
