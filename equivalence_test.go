package junction

import (
	"net/http"
	"strings"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// equivalenceRoutes share no literal/parameter ambiguity: whenever two routes
// match the same path, one of them covers the other.
var equivalenceRoutes = []testRoute{
	mdl(MethodAll, "/*"),
	route(http.MethodGet, "/"),
	route(http.MethodGet, "/users"),
	route(http.MethodGet, "/users/:id"),
	route(http.MethodGet, "/users/:id/posts"),
	route(http.MethodGet, "/users/:id/posts/:pid"),
	route(http.MethodPost, "/users/:id/posts"),
	mdl(MethodAll, "/users/*"),
	mdl(http.MethodGet, "/users/:uid/posts/*"),
	route(http.MethodGet, "/users/me"),
	route(http.MethodGet, "/static/*"),
	route(http.MethodGet, "/static/app.js"),
	route(http.MethodGet, "/api/v1/health"),
	route(http.MethodGet, "/api/:version/items"),
	route(http.MethodGet, "/api/:version/items/:item{[0-9]+}"),
	route(MethodAll, "/ping"),
	route(http.MethodDelete, "/items/*/tags"),
	route(http.MethodGet, "/dir/"),
	route(http.MethodGet, "/blob/:path{.+}"),
	route(http.MethodGet, "/codes/:code{^[A-Z]{3}$}"),
	route(http.MethodGet, "/café/menu"),
}

var equivalenceVocabulary = []string{
	"", "users", "me", "posts", "42", "7", "static", "app.js", "api", "v1", "v2",
	"health", "items", "123", "abc", "ping", "tags", "dir", "blob", "a%20b", "x.y",
}

var equivalenceMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodPut}

func assertSameMatch(t *testing.T, trie, combined matcher, method, path string) {
	t.Helper()
	want := trie.match(method, path)
	got := combined.match(method, path)
	assert.Equal(t, want.Scores(), got.Scores(), "%s %s", method, path)
	assert.Equal(t, chainParams(want), chainParams(got), "%s %s", method, path)
}

func TestStrategiesEquivalent(t *testing.T) {
	tm := buildMatcher(t, newTrieMatcher(), equivalenceRoutes)
	cm := buildMatcher(t, newCombinedMatcher(), equivalenceRoutes)

	paths := []string{
		"/", "/users", "/users/", "/users/me", "/users/42", "/users/42/posts",
		"/users/42/posts/7", "/users/42/posts/7/x", "/static", "/static/app.js",
		"/static/css/site.css", "/api/v1/health", "/api/v1/items", "/api/v2/items/123",
		"/api/v2/items/abc", "/ping", "/items/1/tags", "/items//tags", "/dir/", "/dir",
		"/blob/a/b/c", "/blob", "/unknown/path", "//", "/codes/ABC", "/codes/AB",
		"/codes/abc", "/caf%C3%A9/menu",
	}
	for _, method := range equivalenceMethods {
		for _, path := range paths {
			assertSameMatch(t, tm, cm, method, path)
		}
	}
}

func TestStrategiesEquivalent_Fuzz(t *testing.T) {
	tm := buildMatcher(t, newTrieMatcher(), equivalenceRoutes)
	cm := buildMatcher(t, newCombinedMatcher(), equivalenceRoutes)
	f := fuzz.NewWithSeed(20240611).NilChance(0).NumElements(0, 6)

	for i := 0; i < 2000; i++ {
		var picks []uint8
		f.Fuzz(&picks)
		var sb strings.Builder
		for _, p := range picks {
			sb.WriteByte('/')
			if idx := int(p) % (len(equivalenceVocabulary) + 4); idx < len(equivalenceVocabulary) {
				sb.WriteString(equivalenceVocabulary[idx])
				continue
			}
			var raw string
			f.Fuzz(&raw)
			sb.WriteString(raw)
		}
		path := sb.String()
		if path == "" {
			path = "/"
		}
		var m uint8
		f.Fuzz(&m)
		assertSameMatch(t, tm, cm, equivalenceMethods[int(m)%len(equivalenceMethods)], path)
	}
}

func TestStrategiesEquivalent_StaticBypass(t *testing.T) {
	withStatic := buildMatcher(t, newCombinedMatcher(), equivalenceRoutes)
	regexOnly := buildMatcher(t, &combinedMatcher{noStatic: true}, equivalenceRoutes)

	for _, e := range buildEntries(t, equivalenceRoutes) {
		path, ok := e.Pattern.literalPath()
		if !ok {
			continue
		}
		for _, method := range equivalenceMethods {
			assertSameMatch(t, regexOnly, withStatic, method, path)
		}
	}
}

func TestStrategiesEquivalent_Server(t *testing.T) {
	register := func(s *HTTPServer) {
		for _, r := range equivalenceRoutes {
			if r.kind == KindRoute {
				require.NoError(t, s.Handle(r.method, r.pattern, HandleFunc(func(ctx *Context) error {
					return ctx.String(http.StatusOK, ctx.MatchedRoute)
				})))
				continue
			}
			require.NoError(t, s.UseRoute(r.method, r.pattern, HandlerFunc(func(ctx *Context, next Next) error {
				return next()
			})))
		}
	}
	combined := InitHTTPServer(WithStrategies(strategyCombined))
	register(combined)
	trie := InitHTTPServer(WithStrategies(strategyTrie))
	register(trie)

	for _, path := range []string{"/users/42/posts/7", "/static/app.js", "/blob/x/y", "/codes/XYZ", "/caf%C3%A9/menu", "/nope"} {
		want := dispatch(t, trie, http.MethodGet, path, nil)
		got := dispatch(t, combined, http.MethodGet, path, nil)
		assert.Equal(t, want.StatusCode, got.StatusCode, path)
		assert.Equal(t, string(want.Body), string(got.Body), path)
	}
	assert.Equal(t, strategyCombined, combined.Strategy())
	assert.Equal(t, strategyTrie, trie.Strategy())
}
