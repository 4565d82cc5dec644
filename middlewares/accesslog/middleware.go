package accesslog

import (
	"log/slog"
	"time"

	"github.com/dormoron/junction"
)

// MiddlewareBuilder builds a middleware that writes one structured record
// per request after the rest of the chain has run.
type MiddlewareBuilder struct {
	logger *slog.Logger
	level  slog.Level
}

func InitMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{logger: slog.Default(), level: slog.LevelInfo}
}

func (b *MiddlewareBuilder) Logger(logger *slog.Logger) *MiddlewareBuilder {
	b.logger = logger
	return b
}

func (b *MiddlewareBuilder) Level(level slog.Level) *MiddlewareBuilder {
	b.level = level
	return b
}

func (b *MiddlewareBuilder) Build() junction.Middleware {
	return func(next junction.HandleFunc) junction.HandleFunc {
		return func(ctx *junction.Context) error {
			start := time.Now()
			err := next(ctx)
			attrs := []slog.Attr{
				slog.String("host", ctx.Request.Host),
				slog.String("route", ctx.MatchedRoute),
				slog.String("http_method", ctx.Request.Method),
				slog.String("path", ctx.Request.URL.Path),
				slog.Int("status", ctx.StatusCode()),
				slog.Duration("latency", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			b.logger.LogAttrs(ctx, b.level, "access", attrs...)
			return err
		}
	}
}
