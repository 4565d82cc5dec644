package requestid

import (
	"github.com/google/uuid"

	"github.com/dormoron/junction"
)

const (
	HeaderName = "X-Request-ID"
	// ContextKey is the key under which the id is stored with Context.Set.
	ContextKey = "request_id"
)

type MiddlewareBuilder struct {
	header    string
	generator func() string
}

func InitMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{
		header:    HeaderName,
		generator: func() string { return uuid.NewString() },
	}
}

func (b *MiddlewareBuilder) Header(name string) *MiddlewareBuilder {
	b.header = name
	return b
}

func (b *MiddlewareBuilder) Generator(fn func() string) *MiddlewareBuilder {
	b.generator = fn
	return b
}

// Build reuses an incoming id or generates one, stores it on the context and
// echoes it on the response.
func (b *MiddlewareBuilder) Build() junction.Middleware {
	return func(next junction.HandleFunc) junction.HandleFunc {
		return func(ctx *junction.Context) error {
			id := ctx.Request.Header.Get(b.header)
			if id == "" {
				id = b.generator()
			}
			ctx.Set(ContextKey, id)
			err := next(ctx)
			ctx.Header(b.header, id)
			return err
		}
	}
}

// FromContext returns the id stored by the middleware.
func FromContext(ctx *junction.Context) string {
	return ctx.GetString(ContextKey)
}
