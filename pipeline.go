package junction

// run executes the chain of ctx. A handler panic is recovered into a
// *PanicError and returned like any other handler error.
func (s *HTTPServer) run(ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	chain := ctx.chain
	switch len(chain) {
	case 0:
		return s.notFound(ctx)
	case 1:
		// no middleware: call the handler directly
		ctx.current = 0
		called := false
		return chain[0].Handler.Serve(ctx, func() error {
			if called {
				panic(ErrNextCalledTwice)
			}
			called = true
			return s.exhausted(ctx)
		})
	}
	index := -1
	var dispatch func(i int) error
	dispatch = func(i int) error {
		if i <= index {
			panic(ErrNextCalledTwice)
		}
		index = i
		if i == len(chain) {
			return s.exhausted(ctx)
		}
		ctx.current = i
		return chain[i].Handler.Serve(ctx, func() error {
			err := dispatch(i + 1)
			ctx.current = i
			return err
		})
	}
	return dispatch(0)
}

// exhausted runs the not-found handler when the whole chain passed
// control on without producing a response.
func (s *HTTPServer) exhausted(ctx *Context) error {
	if ctx.Written() {
		return nil
	}
	return s.notFound(ctx)
}
