package junction

import (
	"cmp"
	"slices"
)

// MethodAll registers an entry for every HTTP method.
const MethodAll = "ALL"

// EntryKind separates middleware entries from route entries in a chain.
type EntryKind uint8

const (
	KindMiddleware EntryKind = iota
	KindRoute
)

func (k EntryKind) String() string {
	if k == KindMiddleware {
		return "middleware"
	}
	return "route"
}

// HandlerEntry is one registration: a handler bound to a method and pattern.
// Score is the registration index and breaks ties between entries of equal
// specificity. Entries are never mutated after registration.
type HandlerEntry struct {
	Handler Handler
	Method  string
	Pattern *Pattern
	Kind    EntryKind
	Score   int

	// names holds the parameter name of every capturing segment in order,
	// "" for wildcards.
	names []string
}

func newHandlerEntry(method string, p *Pattern, kind EntryKind, h Handler, score int) *HandlerEntry {
	e := &HandlerEntry{Handler: h, Method: method, Pattern: p, Kind: kind, Score: score}
	for _, seg := range p.Segments {
		if !seg.captures() {
			continue
		}
		if seg.Kind == SegmentParam {
			e.names = append(e.names, seg.Text)
		} else {
			e.names = append(e.names, "")
		}
	}
	return e
}

// compareEntries orders middleware before routes. Middleware keeps
// registration order; routes sort by specificity and then registration order.
func compareEntries(a, b *HandlerEntry) int {
	if a.Kind != b.Kind {
		return cmp.Compare(a.Kind, b.Kind)
	}
	if a.Kind == KindRoute {
		if c := compareSpecificity(a.Pattern, b.Pattern); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Score, b.Score)
}

func compareSpecificity(a, b *Pattern) int {
	for i := 0; ; i++ {
		switch {
		case i == len(a.Segments) && i == len(b.Segments):
			return 0
		case i == len(a.Segments):
			return -1
		case i == len(b.Segments):
			return 1
		}
		if c := cmp.Compare(a.Segments[i].rank(), b.Segments[i].rank()); c != 0 {
			return c
		}
	}
}

// binding resolves one parameter of a matched entry, either from a capture
// group of the matched path or from a constant.
type binding struct {
	name  string
	group int
	value string
}

// Params are the raw, undecoded parameter values of one matched entry.
type Params struct {
	path  string
	loc   []int
	binds []binding
}

func (p Params) value(b binding) string {
	if b.group < 0 {
		return b.value
	}
	return p.path[p.loc[2*b.group]:p.loc[2*b.group+1]]
}

// Get returns the raw value of the named parameter.
func (p Params) Get(name string) (string, bool) {
	for _, b := range p.binds {
		if b.name == name {
			return p.value(b), true
		}
	}
	return "", false
}

func (p Params) Len() int {
	return len(p.binds)
}

// Map copies the raw values into a fresh map.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p.binds))
	for _, b := range p.binds {
		m[b.name] = p.value(b)
	}
	return m
}

// MatchedEntry pairs a registration with the parameters it bound for one path.
type MatchedEntry struct {
	*HandlerEntry
	Params Params
}

// MatchResult is the ordered chain for a request. An empty result means no
// registration matched.
type MatchResult struct {
	Entries []MatchedEntry
}

var emptyResult = &MatchResult{}

func (r *MatchResult) Empty() bool {
	return len(r.Entries) == 0
}

// Route returns the pattern of the first route entry, or "" when only
// middleware matched.
func (r *MatchResult) Route() string {
	for _, e := range r.Entries {
		if e.Kind == KindRoute {
			return e.Pattern.Raw
		}
	}
	return ""
}

// Scores lists the registration index of every entry in chain order.
func (r *MatchResult) Scores() []int {
	scores := make([]int, len(r.Entries))
	for i, e := range r.Entries {
		scores[i] = e.Score
	}
	return scores
}

func sortEntries(entries []MatchedEntry) {
	slices.SortStableFunc(entries, func(a, b MatchedEntry) int {
		return compareEntries(a.HandlerEntry, b.HandlerEntry)
	})
}
