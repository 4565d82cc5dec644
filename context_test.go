package junction

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormoron/junction/internal/errs"
)

func TestContext_Param(t *testing.T) {
	s := InitHTTPServer()
	var ctxSeen *Context
	s.GET("/files/:name", func(ctx *Context) error {
		ctxSeen = ctx
		assert.Equal(t, "a b", ctx.Param("name"))
		assert.Equal(t, "a b", ctx.Param("name"))
		assert.Equal(t, "", ctx.Param("missing"))

		_, err := ctx.PathValue("missing").String()
		assert.True(t, errs.IsKeyNotFound(err))
		return ctx.String(http.StatusOK, ctx.Param("name"))
	})
	s.GET("/plain/:id", func(ctx *Context) error {
		id, err := ctx.PathValue("id").AsInt64()
		require.NoError(t, err)
		return ctx.RespJSONOK(map[string]int64{"id": id})
	})

	resp := dispatch(t, s, http.MethodGet, "/files/a%20b", nil)
	assert.Equal(t, "a b", string(resp.Body))
	require.NotNil(t, ctxSeen)
	// decoded values are memoized per chain entry
	assert.Equal(t, map[string]string{"name": "a b"}, ctxSeen.decoded[ctxSeen.current])

	resp = dispatch(t, s, http.MethodGet, "/plain/12", nil)
	assert.Equal(t, `{"id":12}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestContext_ParamsPerEntry(t *testing.T) {
	s := InitHTTPServer()
	var fromMiddleware, fromRoute map[string]string
	require.NoError(t, s.UseForAll("/users/:uid/*", HandlerFunc(func(ctx *Context, next Next) error {
		fromMiddleware = ctx.Params()
		err := next()
		// the continuation restores the running entry
		assert.Equal(t, "7", ctx.Param("uid"))
		assert.Equal(t, "", ctx.Param("pid"))
		return err
	})))
	s.GET("/users/:id/posts/:pid", func(ctx *Context) error {
		fromRoute = ctx.Params()
		assert.Equal(t, KindRoute, ctx.Entry().Kind)
		return nil
	})

	dispatch(t, s, http.MethodGet, "/users/7/posts/3", nil)
	assert.Equal(t, map[string]string{"uid": "7"}, fromMiddleware)
	assert.Equal(t, map[string]string{"id": "7", "pid": "3"}, fromRoute)
}

func TestContext_Query(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/q?a=1&b=2&a=3&x%20y=z&q=a+b&&bad=%zz&e=", nil)
	ctx := newContext(req, emptyResult)

	assert.Equal(t, "1", ctx.Query("a"))
	assert.Equal(t, "z", ctx.Query("x y"))
	assert.Equal(t, "a b", ctx.Query("q"))
	assert.Equal(t, "", ctx.Query("e"))
	assert.Equal(t, "", ctx.Query("bad"))
	_, err := ctx.QueryValue("missing").String()
	assert.Error(t, err)
	assert.Equal(t, "fallback", ctx.QueryValue("missing").StringOrDefault("fallback"))
	// single-key reads do not build the parsed map
	assert.Nil(t, ctx.queryValues)

	assert.Equal(t, []string{"1", "3"}, ctx.QueryValues("a"))
	assert.NotNil(t, ctx.queryValues)
	assert.Equal(t, "2", ctx.Query("b"))
	n, err := ctx.QueryValue("b").AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestScanQuery(t *testing.T) {
	testCases := []struct {
		raw    string
		key    string
		want   string
		wantOK bool
	}{
		{raw: "", key: "a"},
		{raw: "a=1", key: "a", want: "1", wantOK: true},
		{raw: "a", key: "a", want: "", wantOK: true},
		{raw: "b=1&a=2", key: "a", want: "2", wantOK: true},
		{raw: "a%3Db=c", key: "a=b", want: "c", wantOK: true},
		{raw: "a=1;b=2&a=3", key: "a", want: "3", wantOK: true},
		{raw: "a=%2F", key: "a", want: "/", wantOK: true},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := scanQuery(tc.raw, tc.key)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)

			// agrees with the parsed form
			parsed, _ := url.ParseQuery(tc.raw)
			if vs, present := parsed[tc.key]; present {
				assert.Equal(t, vs[0], got)
			}
		})
	}
}

func TestContext_Keys(t *testing.T) {
	ctx := newContext(httptest.NewRequest(http.MethodGet, "/", nil), emptyResult)

	_, ok := ctx.Get("user")
	assert.False(t, ok)
	assert.Panics(t, func() { ctx.MustGet("user") })

	ctx.Set("user", "alice")
	ctx.Set("count", 3)
	assert.Equal(t, "alice", ctx.MustGet("user"))
	assert.Equal(t, "alice", ctx.GetString("user"))
	assert.Equal(t, "", ctx.GetString("count"))
	assert.Equal(t, "alice", ctx.Value("user"))
	assert.Nil(t, ctx.Value("nothing"))
	assert.Nil(t, ctx.Entry())
	assert.Empty(t, ctx.Params())
}

func TestContext_BindJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"junction"}`))
	ctx := newContext(req, emptyResult)
	var body struct {
		Name string `json:"name"`
	}
	require.NoError(t, ctx.BindJSON(&body))
	assert.Equal(t, "junction", body.Name)
	assert.Error(t, ctx.BindJSON(nil))
}

func TestContext_Response(t *testing.T) {
	ctx := newContext(httptest.NewRequest(http.MethodGet, "/", nil), emptyResult)
	assert.Equal(t, http.StatusOK, ctx.StatusCode())
	assert.False(t, ctx.Written())

	ctx.Status(http.StatusAccepted)
	assert.Equal(t, http.StatusAccepted, ctx.StatusCode())
	assert.False(t, ctx.Written())

	require.NoError(t, ctx.Redirect(http.StatusFound, "/login"))
	assert.True(t, ctx.Written())
	assert.Equal(t, "/login", ctx.ResponseHeader().Get("Location"))

	ctx.resetResponse()
	assert.False(t, ctx.Written())
	assert.Empty(t, ctx.ResponseHeader())

	require.NoError(t, ctx.String(http.StatusTeapot, "short and stout"))
	rec := httptest.NewRecorder()
	require.NoError(t, ctx.response().Write(rec))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	assert.Error(t, ctx.RespJSON(http.StatusOK, make(chan int)))
}

func TestHTTPServer_ServeHTTP(t *testing.T) {
	s := InitHTTPServer()
	s.GET("/hello/:name", func(ctx *Context) error {
		ctx.Header("X-Name", ctx.Param("name"))
		return ctx.String(http.StatusOK, "hello "+ctx.Param("name"))
	})
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/hello/gopher")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gopher", resp.Header.Get("X-Name"))

	resp2, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestStringValue(t *testing.T) {
	v := StringValue{val: "3.5"}
	f, err := v.AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)
	_, err = v.AsInt64()
	assert.Error(t, err)

	b, err := StringValue{val: "true"}.AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	u, err := StringValue{val: "18"}.AsUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(18), u)

	missing := StringValue{err: errs.ErrKeyNotFound("x")}
	_, err = missing.AsUint64()
	assert.True(t, errs.IsKeyNotFound(err))
	assert.Equal(t, "d", missing.StringOrDefault("d"))
}
