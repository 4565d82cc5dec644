package locallimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dormoron/junction"
)

func TestMiddlewareBuilder_Build(t *testing.T) {
	builder := InitMiddlewareBuilder(1)
	server := junction.InitHTTPServer()
	server.Use(builder.Build())

	entered := make(chan struct{})
	release := make(chan struct{})
	server.GET("/slow", func(ctx *junction.Context) error {
		close(entered)
		<-release
		return ctx.String(http.StatusOK, "done")
	})
	server.GET("/fast", func(ctx *junction.Context) error {
		return ctx.String(http.StatusOK, "fast")
	})

	var wg sync.WaitGroup
	wg.Add(1)
	var slow *junction.Response
	go func() {
		defer wg.Done()
		slow, _ = server.Dispatch(httptest.NewRequest(http.MethodGet, "/slow", nil))
	}()
	<-entered
	assert.Equal(t, int64(1), builder.Active())

	resp, err := server.Dispatch(httptest.NewRequest(http.MethodGet, "/fast", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	close(release)
	wg.Wait()
	require.NotNil(t, slow)
	assert.Equal(t, http.StatusOK, slow.StatusCode)
	assert.Equal(t, int64(0), builder.Active())

	resp, err = server.Dispatch(httptest.NewRequest(http.MethodGet, "/fast", nil))
	require.NoError(t, err)
	assert.Equal(t, "fast", string(resp.Body))
}

func TestMiddlewareBuilder_OverloadHandler(t *testing.T) {
	builder := InitMiddlewareBuilder(0).SetOverloadResponseHandler(func(ctx *junction.Context) error {
		return ctx.String(http.StatusServiceUnavailable, "busy")
	})
	server := junction.InitHTTPServer()
	server.Use(builder.Build())
	server.GET("/", func(ctx *junction.Context) error {
		return ctx.String(http.StatusOK, "ok")
	})

	resp, err := server.Dispatch(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "busy", string(resp.Body))

	builder.SetMaxActive(1)
	resp, err = server.Dispatch(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
