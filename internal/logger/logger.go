package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// dualHandler writes every record to the core handler and duplicates
// error-level records into the error file handler.
type dualHandler struct {
	coreHandler  slog.Handler
	errorHandler slog.Handler
}

func (h *dualHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.coreHandler.Enabled(ctx, lvl) || h.errorHandler.Enabled(ctx, lvl)
}

func (h *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.coreHandler.Enabled(ctx, r.Level) {
		if err := h.coreHandler.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= slog.LevelError && h.errorHandler.Enabled(ctx, r.Level) {
		// a broken error file must not break the main output
		_ = h.errorHandler.Handle(ctx, r.Clone())
	}

	return nil
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithAttrs(attrs),
		errorHandler: h.errorHandler.WithAttrs(attrs),
	}
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithGroup(name),
		errorHandler: h.errorHandler.WithGroup(name),
	}
}

func coreHandler(env string, w io.Writer) slog.Handler {
	level := slog.LevelDebug
	if env == EnvProd {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if env == EnvDev {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Setup builds the process logger. Errors are additionally appended to errorLogPath;
// when that file cannot be opened the logger falls back to stdout only.
func Setup(env, errorLogPath string) *slog.Logger {
	core := coreHandler(env, os.Stdout)
	if errorLogPath == "" {
		return slog.New(core)
	}

	errorFile, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		slog.Warn("cannot open error log file", slog.String("path", errorLogPath), slog.String("error", err.Error()))
		return slog.New(core)
	}

	return New(core, errorFile)
}

func New(core slog.Handler, errorOut io.Writer) *slog.Logger {
	return slog.New(&dualHandler{
		coreHandler:  core,
		errorHandler: slog.NewTextHandler(errorOut, &slog.HandlerOptions{Level: slog.LevelError}),
	})
}

// Discard is used by tests and by components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
