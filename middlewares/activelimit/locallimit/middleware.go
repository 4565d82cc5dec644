package locallimit

import (
	"net/http"

	"go.uber.org/atomic"

	"github.com/dormoron/junction"
)

// MiddlewareBuilder caps the number of requests in flight. Requests over the
// cap are answered by the overload handler without running the rest of the
// chain.
type MiddlewareBuilder struct {
	maxActive               *atomic.Int64
	countActive             *atomic.Int64
	overloadResponseHandler junction.HandleFunc
}

func InitMiddlewareBuilder(maxActive int64) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		maxActive:   atomic.NewInt64(maxActive),
		countActive: atomic.NewInt64(0),
	}
}

// SetOverloadResponseHandler replaces the default 429 response.
func (b *MiddlewareBuilder) SetOverloadResponseHandler(handler junction.HandleFunc) *MiddlewareBuilder {
	b.overloadResponseHandler = handler
	return b
}

// SetMaxActive changes the cap at run time.
func (b *MiddlewareBuilder) SetMaxActive(maxActive int64) {
	b.maxActive.Store(maxActive)
}

// Active returns the number of requests in flight.
func (b *MiddlewareBuilder) Active() int64 {
	return b.countActive.Load()
}

func (b *MiddlewareBuilder) Build() junction.Middleware {
	return func(next junction.HandleFunc) junction.HandleFunc {
		return func(ctx *junction.Context) error {
			current := b.countActive.Inc()
			defer b.countActive.Dec()
			if current > b.maxActive.Load() {
				if b.overloadResponseHandler != nil {
					return b.overloadResponseHandler(ctx)
				}
				return ctx.String(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			}
			return next(ctx)
		}
	}
}
