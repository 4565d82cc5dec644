package junction

const noNode int32 = -1

// trieNode is one node of the arena. Children are referenced by index.
type trieNode struct {
	seg      Segment
	literals map[string]int32
	// params holds one child per distinct constraint, in insertion order.
	params   []int32
	wildcard int32
	tail     int32
	entries  []*HandlerEntry
}

// trie is a prefix tree of pattern segments with one root per method.
// Nodes live in a single slice; there are no parent pointers.
type trie struct {
	nodes []trieNode
	roots map[string]int32
}

func newTrie() *trie {
	return &trie{
		nodes: make([]trieNode, 0, 64),
		roots: make(map[string]int32, 4),
	}
}

func (t *trie) newNode(seg Segment) int32 {
	t.nodes = append(t.nodes, trieNode{seg: seg, wildcard: noNode, tail: noNode})
	return int32(len(t.nodes) - 1)
}

func (t *trie) rootFor(method string) int32 {
	if r, ok := t.roots[method]; ok {
		return r
	}
	r := t.newNode(Segment{})
	t.roots[method] = r
	return r
}

// insert adds e under the root of its method and returns the terminal node.
func (t *trie) insert(e *HandlerEntry) (int32, error) {
	return t.insertAt(t.rootFor(e.Method), e)
}

// insertAt adds e below root. A second route of the same method on the same
// terminal node is a conflict.
func (t *trie) insertAt(root int32, e *HandlerEntry) (int32, error) {
	n := root
	for _, seg := range e.Pattern.Segments {
		n = t.child(n, seg)
	}
	if e.Kind == KindRoute {
		for _, other := range t.nodes[n].entries {
			if other.Kind == KindRoute && other.Method == e.Method {
				return noNode, &PathConflictError{Method: e.Method, Pattern: e.Pattern.Raw, Existing: other.Pattern.Raw}
			}
		}
	}
	t.nodes[n].entries = append(t.nodes[n].entries, e)
	return n, nil
}

func (t *trie) child(n int32, seg Segment) int32 {
	switch seg.Kind {
	case SegmentLiteral:
		if c, ok := t.nodes[n].literals[seg.Text]; ok {
			return c
		}
		c := t.newNode(seg)
		if t.nodes[n].literals == nil {
			t.nodes[n].literals = make(map[string]int32, 2)
		}
		t.nodes[n].literals[seg.Text] = c
		return c
	case SegmentParam:
		for _, c := range t.nodes[n].params {
			if t.nodes[c].seg.Constraint == seg.Constraint {
				return c
			}
		}
		c := t.newNode(seg)
		t.nodes[n].params = append(t.nodes[n].params, c)
		return c
	case SegmentWildcard:
		if t.nodes[n].wildcard == noNode {
			c := t.newNode(seg)
			t.nodes[n].wildcard = c
		}
		return t.nodes[n].wildcard
	default:
		if t.nodes[n].tail == noNode {
			c := t.newNode(seg)
			t.nodes[n].tail = c
		}
		return t.nodes[n].tail
	}
}

// cursor is one live candidate of the search: a node, the index of the next
// path segment to consume and the text captured on the way.
type cursor struct {
	node int32
	pos  int
	caps []string
}

func appendCap(caps []string, v string) []string {
	return append(caps[:len(caps):len(caps)], v)
}

// search walks every branch that can consume path, in breadth-first order,
// and returns all reached terminal entries sorted into chain order.
func (t *trie) search(method, path string) *MatchResult {
	segs, ok := splitPath(path)
	if !ok {
		return emptyResult
	}
	queue := make([]cursor, 0, 8)
	for _, m := range methodsFor(method) {
		if r, ok := t.roots[m]; ok {
			queue = append(queue, cursor{node: r})
		}
	}
	var hits hitSet
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := &t.nodes[cur.node]
		if n.tail != noNode {
			hits.collect(t.nodes[n.tail].entries, cur.caps)
		}
		if cur.pos == len(segs) {
			hits.collect(n.entries, cur.caps)
			continue
		}
		raw := segs[cur.pos]
		if c, ok := n.literals[raw]; ok {
			queue = append(queue, cursor{node: c, pos: cur.pos + 1, caps: cur.caps})
		}
		for _, c := range n.params {
			seg := &t.nodes[c].seg
			if !seg.multi {
				if seg.accepts(raw) {
					queue = append(queue, cursor{node: c, pos: cur.pos + 1, caps: appendCap(cur.caps, raw)})
				}
				continue
			}
			// a constraint that admits '/' may consume several segments
			window := raw
			for end := cur.pos + 1; end <= len(segs); end++ {
				if end > cur.pos+1 {
					window += "/" + segs[end-1]
				}
				if seg.re.MatchString(window) {
					queue = append(queue, cursor{node: c, pos: end, caps: appendCap(cur.caps, window)})
				}
			}
		}
		if n.wildcard != noNode && raw != "" {
			queue = append(queue, cursor{node: n.wildcard, pos: cur.pos + 1, caps: appendCap(cur.caps, raw)})
		}
	}
	if len(hits.entries) == 0 {
		return emptyResult
	}
	sortEntries(hits.entries)
	return &MatchResult{Entries: hits.entries}
}

// hitSet deduplicates entries reached by more than one branch. When an entry
// is reached twice the branch whose earlier captures are longer wins.
type hitSet struct {
	entries []MatchedEntry
	caps    [][]string
	index   map[*HandlerEntry]int
}

func (h *hitSet) collect(entries []*HandlerEntry, caps []string) {
	for _, e := range entries {
		if h.index == nil {
			h.index = make(map[*HandlerEntry]int, 4)
		}
		if i, seen := h.index[e]; seen {
			if greedier(caps, h.caps[i]) {
				h.entries[i].Params = bindCaptures(e, caps)
				h.caps[i] = caps
			}
			continue
		}
		h.index[e] = len(h.entries)
		h.entries = append(h.entries, MatchedEntry{HandlerEntry: e, Params: bindCaptures(e, caps)})
		h.caps = append(h.caps, caps)
	}
}

func greedier(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if len(a[i]) != len(b[i]) {
			return len(a[i]) > len(b[i])
		}
	}
	return false
}

func bindCaptures(e *HandlerEntry, caps []string) Params {
	if len(e.names) == 0 {
		return Params{}
	}
	binds := make([]binding, 0, e.Pattern.ParamCount)
	for i, name := range e.names {
		if name != "" && i < len(caps) {
			binds = append(binds, binding{name: name, group: -1, value: caps[i]})
		}
	}
	return Params{binds: binds}
}

// methodsFor lists the roots consulted for a request method.
func methodsFor(method string) []string {
	if method == MethodAll {
		return []string{MethodAll}
	}
	return []string{method, MethodAll}
}

// trieMatcher is the strategy that can represent every pattern.
type trieMatcher struct {
	t *trie
}

func newTrieMatcher() *trieMatcher {
	return &trieMatcher{t: newTrie()}
}

func (m *trieMatcher) name() string {
	return strategyTrie
}

func (m *trieMatcher) add(e *HandlerEntry) error {
	_, err := m.t.insert(e)
	return err
}

func (m *trieMatcher) build() error {
	return nil
}

func (m *trieMatcher) match(method, path string) *MatchResult {
	return m.t.search(method, path)
}
