package junction

// Middleware wraps the remainder of the chain. Middleware values are
// Handlers, so they can be registered with Use, UseRoute and UseForAll.
//
// A middleware performs work before and after the inner handler:
//
//	func Timing() Middleware {
//		return func(next HandleFunc) HandleFunc {
//			return func(ctx *Context) error {
//				start := time.Now()
//				err := next(ctx)
//				ctx.Header("X-Elapsed", time.Since(start).String())
//				return err
//			}
//		}
//	}
//
// Returning without calling next short-circuits the chain; no later entry
// runs for the request.
type Middleware func(next HandleFunc) HandleFunc

func (m Middleware) Serve(ctx *Context, next Next) error {
	return m(func(*Context) error { return next() })(ctx)
}
