package junction

// Next runs the remainder of the handler chain and returns its error.
// Calling it twice from the same handler is a programming error.
type Next func() error

// Handler is one link of a dispatch chain. A handler either produces the
// response itself and returns, or calls next to let the rest of the chain run
// and may inspect the response the downstream entries produced afterwards.
type Handler interface {
	Serve(ctx *Context, next Next) error
}

// HandlerFunc adapts a function with an explicit continuation to Handler.
type HandlerFunc func(ctx *Context, next Next) error

func (f HandlerFunc) Serve(ctx *Context, next Next) error {
	return f(ctx, next)
}

// HandleFunc is a terminal handler: it never continues the chain.
//
//	server.GET("/hello", func(ctx *Context) error {
//		return ctx.String(http.StatusOK, "Hello, World!")
//	})
type HandleFunc func(ctx *Context) error

func (f HandleFunc) Serve(ctx *Context, _ Next) error {
	return f(ctx)
}
