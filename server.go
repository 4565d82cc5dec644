package junction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

var _ Server = &HTTPServer{}

// Server is the transport-facing contract of the engine.
type Server interface {
	http.Handler
	Start(addr string) error
	Dispatch(req *http.Request) (*Response, error)
}

// ErrorHandler turns a dispatch failure into a response. An error returned
// by the handler itself is a double fault and is not recovered.
type ErrorHandler func(ctx *Context, err error) error

// HTTPServerOption configures an HTTPServer.
type HTTPServerOption func(server *HTTPServer)

type HTTPServer struct {
	*router
	log          *slog.Logger
	notFound     HandleFunc   // answers requests no route handled
	errorHandler ErrorHandler // answers failed dispatches
	httpServer   *http.Server // set by Start or WithServerConfig, stopped by Shutdown
	optErr       error        // first error raised by an option
}

// ServerConfig holds the net/http server settings used by Start.
type ServerConfig struct {
	ReadTimeout       time.Duration // whole request, body included
	WriteTimeout      time.Duration // response write
	IdleTimeout       time.Duration // keep-alive idle
	ReadHeaderTimeout time.Duration // request headers
	MaxHeaderBytes    int
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
}

func WithServerConfig(config ServerConfig) HTTPServerOption {
	return func(s *HTTPServer) {
		if s.httpServer == nil {
			s.httpServer = &http.Server{}
		}
		s.httpServer.ReadTimeout = config.ReadTimeout
		s.httpServer.WriteTimeout = config.WriteTimeout
		s.httpServer.IdleTimeout = config.IdleTimeout
		s.httpServer.ReadHeaderTimeout = config.ReadHeaderTimeout
		s.httpServer.MaxHeaderBytes = config.MaxHeaderBytes
	}
}

func WithLogger(log *slog.Logger) HTTPServerOption {
	return func(s *HTTPServer) {
		if log != nil {
			s.log = log
			s.router.log = log
		}
	}
}

// WithNotFoundHandler replaces the default handler, which answers 404 with an empty body.
func WithNotFoundHandler(h HandleFunc) HTTPServerOption {
	return func(s *HTTPServer) {
		if h != nil {
			s.notFound = h
		}
	}
}

// WithErrorHandler replaces the default handler, which logs the error and
// answers 500 with a generic body.
func WithErrorHandler(h ErrorHandler) HTTPServerOption {
	return func(s *HTTPServer) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

// WithMatchCache caches up to size match results.
func WithMatchCache(size int) HTTPServerOption {
	return func(s *HTTPServer) {
		if err := s.EnableMatchCache(size); err != nil && s.optErr == nil {
			s.optErr = err
		}
	}
}

// WithStrategies sets the matcher strategies tried in order, by name
// ("combined", "trie").
func WithStrategies(names ...string) HTTPServerOption {
	return func(s *HTTPServer) {
		if len(names) > 0 {
			s.sel = newSelector(names)
		}
	}
}

func InitHTTPServer(opts ...HTTPServerOption) *HTTPServer {
	res := &HTTPServer{
		router: initRouter(),
	}
	res.log = res.router.log
	res.notFound = defaultNotFound
	res.errorHandler = res.defaultErrorHandler
	for _, opt := range opts {
		opt(res)
	}
	if res.optErr != nil {
		res.log.Warn("server option ignored", slog.Any("error", res.optErr))
	}
	return res
}

func defaultNotFound(ctx *Context) error {
	return ctx.NoContent(http.StatusNotFound)
}

func (s *HTTPServer) defaultErrorHandler(ctx *Context, err error) error {
	s.log.Error("request failed",
		slog.String("method", ctx.Request.Method),
		slog.String("path", ctx.Request.URL.Path),
		slog.String("route", ctx.MatchedRoute),
		slog.Any("error", err))
	return ctx.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// Handle registers a route. It fails with *MalformedPatternError or
// *PathConflictError and adds nothing in that case.
func (s *HTTPServer) Handle(method, pattern string, h Handler) error {
	return s.register(method, pattern, KindRoute, h)
}

// Use registers global middleware on every method and path.
func (s *HTTPServer) Use(mdls ...Handler) {
	if err := s.UseForAll("/*", mdls...); err != nil {
		panic(err)
	}
}

// UseRoute registers middleware for one method on pattern.
func (s *HTTPServer) UseRoute(method, pattern string, mils ...Handler) error {
	for _, m := range mils {
		if err := s.register(method, pattern, KindMiddleware, m); err != nil {
			return err
		}
	}
	return nil
}

// UseForAll registers middleware for every method on pattern.
func (s *HTTPServer) UseForAll(pattern string, mdls ...Handler) error {
	return s.UseRoute(MethodAll, pattern, mdls...)
}

// Compile resolves the matcher strategy now instead of on the first request.
func (s *HTTPServer) Compile() error {
	return s.compile()
}

// Mount copies the registrations of sub under prefix, preserving their
// order. Patterns of sub are rewritten to start with prefix.
func (s *HTTPServer) Mount(prefix string, sub *HTTPServer) error {
	if prefix == "" || prefix[0] != '/' {
		return newMalformed(prefix, "mount prefix must begin with '/'")
	}
	prefix = strings.TrimSuffix(prefix, "/")
	for _, e := range sub.registrations() {
		if err := s.register(e.Method, joinPattern(prefix, e.Pattern.Raw), e.Kind, e.Handler); err != nil {
			return err
		}
	}
	return nil
}

func joinPattern(prefix, pattern string) string {
	if pattern == "/" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return prefix + pattern
}

func (s *HTTPServer) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	resp, err := s.Dispatch(request)
	if err != nil {
		s.log.Error("error handler failed", slog.String("path", request.URL.Path), slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
	if err := resp.Write(writer); err != nil {
		s.log.Warn("write response failed", slog.String("path", request.URL.Path), slog.Any("error", err))
	}
}

// Dispatch matches the request, runs its chain and returns the response.
// Handler errors and panics become the error handler's response; an error is
// returned only when the error handler itself fails.
func (s *HTTPServer) Dispatch(req *http.Request) (*Response, error) {
	res := s.Match(req.Method, req.URL.EscapedPath())
	ctx := newContext(req, res)
	if err := s.run(ctx); err != nil {
		if herr := s.recoverError(ctx, err); herr != nil {
			return nil, herr
		}
	}
	return ctx.response(), nil
}

func (s *HTTPServer) recoverError(ctx *Context, cause error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		if err != nil {
			err = fmt.Errorf("%w (while handling: %w)", err, cause)
		}
	}()
	ctx.resetResponse()
	return s.errorHandler(ctx, cause)
}

func (s *HTTPServer) Start(addr string) error {
	if s.httpServer == nil {
		cfg := DefaultServerConfig()
		WithServerConfig(cfg)(s)
	}
	s.httpServer.Handler = s
	s.httpServer.Addr = addr
	if err := s.Compile(); err != nil {
		return err
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	err = s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *HTTPServer) mustHandle(method, pattern string, h HandleFunc) {
	if err := s.Handle(method, pattern, h); err != nil {
		panic(err)
	}
}

func (s *HTTPServer) GET(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodGet, path, handleFunc)
}

func (s *HTTPServer) HEAD(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodHead, path, handleFunc)
}

func (s *HTTPServer) POST(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodPost, path, handleFunc)
}

func (s *HTTPServer) PUT(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodPut, path, handleFunc)
}

func (s *HTTPServer) PATCH(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodPatch, path, handleFunc)
}

func (s *HTTPServer) DELETE(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodDelete, path, handleFunc)
}

func (s *HTTPServer) CONNECT(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodConnect, path, handleFunc)
}

func (s *HTTPServer) OPTIONS(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodOptions, path, handleFunc)
}

func (s *HTTPServer) TRACE(path string, handleFunc HandleFunc) {
	s.mustHandle(http.MethodTrace, path, handleFunc)
}

// Any registers handleFunc for every method.
func (s *HTTPServer) Any(path string, handleFunc HandleFunc) {
	s.mustHandle(MethodAll, path, handleFunc)
}
