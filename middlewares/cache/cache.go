package cache

import (
	"bytes"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dormoron/junction"
)

// ResponseCache keeps successful GET responses for a fixed TTL.
type ResponseCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

type cachedResponse struct {
	data       []byte
	statusCode int
	headers    http.Header
}

// New creates a cache whose expired entries are purged every cleanup.
func New(ttl, cleanup time.Duration) *ResponseCache {
	return &ResponseCache{
		store: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// KeyFunc derives the cache key of a request. An empty key bypasses the cache.
type KeyFunc func(ctx *junction.Context) string

func (rc *ResponseCache) Middleware(keyFunc KeyFunc) junction.Middleware {
	return func(next junction.HandleFunc) junction.HandleFunc {
		return func(ctx *junction.Context) error {
			if ctx.Request.Method != http.MethodGet {
				return next(ctx)
			}
			key := keyFunc(ctx)
			if key == "" {
				return next(ctx)
			}
			if value, ok := rc.store.Get(key); ok {
				cached := value.(*cachedResponse)
				for k, values := range cached.headers {
					ctx.ResponseHeader()[k] = values
				}
				ctx.Header("X-Cache", "HIT")
				return ctx.Data(cached.statusCode, "", cached.data)
			}
			if err := next(ctx); err != nil {
				return err
			}
			status := ctx.StatusCode()
			if ctx.Written() && status >= 200 && status < 300 {
				rc.store.Set(key, &cachedResponse{
					data:       bytes.Clone(ctx.ResponseBody()),
					statusCode: status,
					headers:    ctx.ResponseHeader().Clone(),
				}, rc.ttl)
			}
			return nil
		}
	}
}

func URLKeyGenerator() KeyFunc {
	return func(ctx *junction.Context) string {
		return ctx.Request.URL.String()
	}
}

func URLAndHeaderKeyGenerator(headers ...string) KeyFunc {
	return func(ctx *junction.Context) string {
		key := ctx.Request.URL.String()
		for _, h := range headers {
			key += ":" + ctx.Request.Header.Get(h)
		}
		return key
	}
}

// Len counts cached entries, expired ones not yet purged included.
func (rc *ResponseCache) Len() int {
	return rc.store.ItemCount()
}

func (rc *ResponseCache) Clear() {
	rc.store.Flush()
}
