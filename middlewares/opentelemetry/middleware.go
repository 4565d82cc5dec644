package opentelemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dormoron/junction"
)

const instrumentationName = "github.com/dormoron/junction/middlewares/opentelemetry"

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

// Build starts a server span per request. The span is named after the
// matched route once the chain returns.
func (m *MiddlewareBuilder) Build() junction.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next junction.HandleFunc) junction.HandleFunc {
		return func(ctx *junction.Context) error {
			reqCtx := ctx.Request.Context()
			reqCtx = otel.GetTextMapPropagator().Extract(reqCtx, propagation.HeaderCarrier(ctx.Request.Header))
			reqCtx, span := m.Tracer.Start(reqCtx, "unknown", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				attribute.String("http.method", ctx.Request.Method),
				attribute.String("http.url", ctx.Request.URL.String()),
				attribute.String("http.scheme", ctx.Request.URL.Scheme),
				attribute.String("http.host", ctx.Request.Host),
			)
			ctx.Request = ctx.Request.WithContext(reqCtx)

			err := next(ctx)

			name := ctx.MatchedRoute
			if name == "" {
				name = "unknown"
			}
			span.SetName(name)
			span.SetAttributes(attribute.Int("http.status", ctx.StatusCode()))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
			return err
		}
	}
}
