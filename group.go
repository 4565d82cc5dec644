package junction

import (
	"net/http"
	"strings"
)

// RouterGroup registers routes under a shared prefix. Middleware passed to
// Group runs for every path below the prefix, on every method.
type RouterGroup struct {
	prefix string
	server *HTTPServer
}

// Group returns a RouterGroup for prefix. The prefix must begin with '/'
// and must not end with one.
func (s *HTTPServer) Group(prefix string, ms ...Handler) *RouterGroup {
	if prefix == "" || prefix[0] != '/' {
		panic(newMalformed(prefix, "group prefix must begin with '/'"))
	}
	if prefix != "/" && strings.HasSuffix(prefix, "/") {
		panic(newMalformed(prefix, "group prefix must not end with '/'"))
	}
	if prefix == "/" {
		prefix = ""
	}
	g := &RouterGroup{prefix: prefix, server: s}
	if len(ms) > 0 {
		if err := s.UseForAll(g.calculateFullPath("/*"), ms...); err != nil {
			panic(err)
		}
	}
	return g
}

// Group nests a group below g.
func (g *RouterGroup) Group(prefix string, ms ...Handler) *RouterGroup {
	return g.server.Group(g.calculateFullPath(prefix), ms...)
}

func (g *RouterGroup) calculateFullPath(path string) string {
	if path == "" {
		path = "/"
	}
	return joinPattern(g.prefix, path)
}

// Handle registers a route below the group prefix.
func (g *RouterGroup) Handle(method, path string, h Handler) error {
	return g.server.Handle(method, g.calculateFullPath(path), h)
}

// Use registers middleware for every method on path below the group prefix.
func (g *RouterGroup) Use(path string, ms ...Handler) error {
	return g.server.UseForAll(g.calculateFullPath(path), ms...)
}

func (g *RouterGroup) mustHandle(method, path string, h HandleFunc) {
	if err := g.Handle(method, path, h); err != nil {
		panic(err)
	}
}

func (g *RouterGroup) GET(path string, handler HandleFunc) {
	g.mustHandle(http.MethodGet, path, handler)
}

func (g *RouterGroup) HEAD(path string, handler HandleFunc) {
	g.mustHandle(http.MethodHead, path, handler)
}

func (g *RouterGroup) POST(path string, handler HandleFunc) {
	g.mustHandle(http.MethodPost, path, handler)
}

func (g *RouterGroup) PUT(path string, handler HandleFunc) {
	g.mustHandle(http.MethodPut, path, handler)
}

func (g *RouterGroup) PATCH(path string, handler HandleFunc) {
	g.mustHandle(http.MethodPatch, path, handler)
}

func (g *RouterGroup) DELETE(path string, handler HandleFunc) {
	g.mustHandle(http.MethodDelete, path, handler)
}

func (g *RouterGroup) OPTIONS(path string, handler HandleFunc) {
	g.mustHandle(http.MethodOptions, path, handler)
}
