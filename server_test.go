package junction

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer_Verbs(t *testing.T) {
	s := InitHTTPServer()
	reply := func(ctx *Context) error {
		return ctx.String(http.StatusOK, ctx.Request.Method)
	}
	s.GET("/v", reply)
	s.HEAD("/v", reply)
	s.POST("/v", reply)
	s.PUT("/v", reply)
	s.PATCH("/v", reply)
	s.DELETE("/v", reply)
	s.CONNECT("/v", reply)
	s.OPTIONS("/v", reply)
	s.TRACE("/v", reply)
	s.Any("/any", reply)

	for _, method := range []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace,
	} {
		resp := dispatch(t, s, method, "/v", nil)
		assert.Equal(t, method, string(resp.Body))
		resp = dispatch(t, s, method, "/any", nil)
		assert.Equal(t, method, string(resp.Body))
	}
	assert.Panics(t, func() { s.GET("/v", reply) })
}

func TestHTTPServer_Group(t *testing.T) {
	s := InitHTTPServer()
	var logs []string
	auth := HandlerFunc(func(ctx *Context, next Next) error {
		logs = append(logs, "auth")
		if ctx.Request.Header.Get("Authorization") == "" {
			return ctx.NoContent(http.StatusUnauthorized)
		}
		return next()
	})
	admin := s.Group("/admin", auth)
	admin.GET("/stats", func(ctx *Context) error {
		return ctx.String(http.StatusOK, "stats")
	})
	users := admin.Group("/users")
	users.GET("/:id", func(ctx *Context) error {
		return ctx.String(http.StatusOK, "user "+ctx.Param("id"))
	})
	users.DELETE("/:id", func(ctx *Context) error {
		return ctx.NoContent(http.StatusNoContent)
	})
	require.NoError(t, users.Use("/:id", HandlerFunc(func(ctx *Context, next Next) error {
		logs = append(logs, "user:"+ctx.Param("id"))
		return next()
	})))
	root := s.Group("/")
	root.GET("", func(ctx *Context) error {
		return ctx.String(http.StatusOK, "home")
	})

	resp := dispatch(t, s, http.MethodGet, "/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	authed := http.Header{"Authorization": {"Bearer x"}}
	resp = dispatch(t, s, http.MethodGet, "/admin/users/9", authed)
	assert.Equal(t, "user 9", string(resp.Body))
	assert.Equal(t, []string{"auth", "auth", "user:9"}, logs)

	resp = dispatch(t, s, http.MethodDelete, "/admin/users/9", authed)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = dispatch(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, "home", string(resp.Body))

	assert.Panics(t, func() { s.Group("admin") })
	assert.Panics(t, func() { s.Group("/admin/") })
}

func TestHTTPServer_Mount(t *testing.T) {
	sub := InitHTTPServer()
	sub.Use(HandlerFunc(func(ctx *Context, next Next) error {
		ctx.Header("X-Sub", "1")
		return next()
	}))
	sub.GET("/", func(ctx *Context) error {
		return ctx.String(http.StatusOK, "index")
	})
	sub.GET("/ping", func(ctx *Context) error {
		return ctx.String(http.StatusOK, "pong")
	})
	sub.GET("/items/:id", func(ctx *Context) error {
		return ctx.String(http.StatusOK, ctx.Param("id"))
	})

	s := InitHTTPServer()
	s.GET("/ping", func(ctx *Context) error {
		return ctx.String(http.StatusOK, "root pong")
	})
	require.NoError(t, s.Mount("/v1/", sub))

	testCases := []struct {
		path    string
		want    string
		wantSub string
	}{
		{path: "/v1/ping", want: "pong", wantSub: "1"},
		{path: "/v1", want: "index", wantSub: "1"},
		{path: "/v1/items/5", want: "5", wantSub: "1"},
		{path: "/ping", want: "root pong"},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			resp := dispatch(t, s, http.MethodGet, tc.path, nil)
			assert.Equal(t, tc.want, string(resp.Body))
			assert.Equal(t, tc.wantSub, resp.Header.Get("X-Sub"))
		})
	}

	var me *MalformedPatternError
	assert.ErrorAs(t, InitHTTPServer().Mount("v1", sub), &me)

	dup := InitHTTPServer()
	dup.GET("/v1/ping", noopHandler)
	var pe *PathConflictError
	assert.ErrorAs(t, dup.Mount("/v1", sub), &pe)
}

func TestJoinPattern(t *testing.T) {
	assert.Equal(t, "/", joinPattern("", "/"))
	assert.Equal(t, "/v1", joinPattern("/v1", "/"))
	assert.Equal(t, "/v1/a", joinPattern("/v1", "/a"))
	assert.Equal(t, "/a", joinPattern("", "/a"))
}

func TestHTTPServer_Options(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	s := InitHTTPServer(WithLogger(log), WithMatchCache(4))
	s.GET("/fail", func(ctx *Context) error {
		return assert.AnError
	})

	resp := dispatch(t, s, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, buf.String(), "request failed")
	assert.Contains(t, buf.String(), "route=/fail")

	dispatch(t, s, http.MethodGet, "/fail", nil)
	hits, misses, _ := s.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	s2 := InitHTTPServer(WithMatchCache(-1), WithServerConfig(DefaultServerConfig()))
	_, _, size := s2.CacheStats()
	assert.Equal(t, 0, size)
	require.NotNil(t, s2.httpServer)
	assert.Equal(t, 1<<20, s2.httpServer.MaxHeaderBytes)
}
