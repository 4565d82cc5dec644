package junction

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/atomic"

	"github.com/dormoron/junction/internal/errs"
)

const (
	strategyCombined = "combined"
	strategyTrie     = "trie"
)

// matcher is one matching strategy. add is called once per registration in
// registration order, then build once; match is only called after build.
type matcher interface {
	name() string
	add(e *HandlerEntry) error
	build() error
	match(method, path string) *MatchResult
}

var strategyFactories = map[string]func() matcher{
	strategyCombined: func() matcher { return newCombinedMatcher() },
	strategyTrie:     func() matcher { return newTrieMatcher() },
}

// selectorState is either unresolved or resolved. The transition happens
// once, inside selector.once.
type selectorState interface {
	isSelectorState()
}

type unresolved struct {
	candidates []string
}

type resolved struct {
	m matcher
}

func (unresolved) isSelectorState() {}
func (resolved) isSelectorState()   {}

type selector struct {
	once  sync.Once
	state selectorState
	err   error
}

func newSelector(candidates []string) *selector {
	return &selector{state: unresolved{candidates: candidates}}
}

// resolve replays entries into each candidate in preference order and binds
// the first one that accepts all of them.
func (s *selector) resolve(entries []*HandlerEntry, log *slog.Logger) {
	u := s.state.(unresolved)
	var rejected []error
	for _, name := range u.candidates {
		factory, ok := strategyFactories[name]
		if !ok {
			rejected = append(rejected, fmt.Errorf("unknown strategy %q", name))
			continue
		}
		m := factory()
		err := replay(m, entries)
		if err == nil {
			s.state = resolved{m: m}
			log.Debug("router strategy resolved", slog.String("strategy", name), slog.Int("entries", len(entries)))
			return
		}
		if !errors.Is(err, ErrUnsupportedPath) {
			s.err = err
			return
		}
		log.Debug("router strategy rejected", slog.String("strategy", name), slog.Any("error", err))
		rejected = append(rejected, err)
	}
	s.err = fmt.Errorf("%w: %w", ErrNoStrategy, errors.Join(rejected...))
}

func replay(m matcher, entries []*HandlerEntry) error {
	for _, e := range entries {
		if err := m.add(e); err != nil {
			return err
		}
	}
	return m.build()
}

// router owns the registrations and the strategy selector.
type router struct {
	mu      sync.Mutex
	entries []*HandlerEntry
	// routes indexes route entries by method and pattern shape.
	routes map[string]*HandlerEntry

	sealed   *atomic.Bool
	strategy *atomic.String
	sel      *selector

	cache  *lru.Cache
	hits   *atomic.Uint64
	misses *atomic.Uint64

	log *slog.Logger
}

func initRouter() *router {
	return &router{
		routes:   make(map[string]*HandlerEntry),
		sealed:   atomic.NewBool(false),
		strategy: atomic.NewString(""),
		sel:      newSelector([]string{strategyCombined, strategyTrie}),
		hits:     atomic.NewUint64(0),
		misses:   atomic.NewUint64(0),
		log:      defaultLogger(),
	}
}

// EnableMatchCache keeps up to size match results keyed by method and path.
// It must be called before the first request.
func (r *router) EnableMatchCache(size int) error {
	if size <= 0 {
		r.cache = nil
		return nil
	}
	c, err := lru.New(size)
	if err != nil {
		return err
	}
	r.cache = c
	return nil
}

// CacheStats reports match cache hits, misses and the current entry count.
func (r *router) CacheStats() (hits, misses uint64, size int) {
	if r.cache != nil {
		size = r.cache.Len()
	}
	return r.hits.Load(), r.misses.Load(), size
}

func (r *router) register(method, pattern string, kind EntryKind, h Handler) error {
	if h == nil {
		return errs.ErrInputNil()
	}
	method = strings.ToUpper(method)
	if method == "" {
		return newMalformed(pattern, "empty method")
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("%w: %s %s", ErrRouterSealed, method, pattern)
	}
	e := newHandlerEntry(method, p, kind, h, len(r.entries))
	if kind == KindRoute {
		key := method + " " + p.shape()
		if other, ok := r.routes[key]; ok {
			return &PathConflictError{Method: method, Pattern: pattern, Existing: other.Pattern.Raw}
		}
		r.routes[key] = e
	}
	r.entries = append(r.entries, e)
	return nil
}

// compile seals the registrations and resolves the strategy. Only the first
// call does any work; every call returns the same result.
func (r *router) compile() error {
	r.sel.once.Do(func() {
		r.mu.Lock()
		r.sealed.Store(true)
		entries := slices.Clone(r.entries)
		r.mu.Unlock()
		r.sel.resolve(entries, r.log)
		if res, ok := r.sel.state.(resolved); ok {
			r.strategy.Store(res.m.name())
		}
	})
	return r.sel.err
}

// Strategy names the bound matcher strategy, or "" before the first match.
func (r *router) Strategy() string {
	return r.strategy.Load()
}

// Match resolves the strategy on first use and returns the ordered chain
// for method and path. A router whose routes no strategy accepts panics:
// that is a configuration error, not a request failure.
func (r *router) Match(method, path string) *MatchResult {
	if err := r.compile(); err != nil {
		r.log.Error("router configuration rejected", slog.Any("error", err))
		panic(err)
	}
	if path == "" {
		path = "/"
	}
	m := r.sel.state.(resolved).m
	if r.cache == nil {
		return m.match(method, path)
	}
	key := method + " " + path
	if v, ok := r.cache.Get(key); ok {
		r.hits.Inc()
		return v.(*MatchResult)
	}
	r.misses.Inc()
	res := m.match(method, path)
	r.cache.Add(key, res)
	return res
}

// registrations returns a snapshot of the registered entries.
func (r *router) registrations() []*HandlerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}
