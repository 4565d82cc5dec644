package junction

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// combinedMatcher compiles all patterns of a method into one regular
// expression. Parameter-free patterns are also served from a static table.
type combinedMatcher struct {
	entries []*HandlerEntry
	methods map[string]*compiledMethod
	// noStatic forces every lookup through the regular expression.
	noStatic bool
}

func newCombinedMatcher() *combinedMatcher {
	return &combinedMatcher{}
}

func (m *combinedMatcher) name() string {
	return strategyCombined
}

func (m *combinedMatcher) add(e *HandlerEntry) error {
	for _, other := range m.entries {
		if other.Kind == KindRoute && e.Kind == KindRoute && other.Method == e.Method &&
			other.Pattern.shape() == e.Pattern.shape() {
			return &PathConflictError{Method: e.Method, Pattern: e.Pattern.Raw, Existing: other.Pattern.Raw}
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *combinedMatcher) unsupported(pattern, reason string) error {
	return &UnsupportedPathError{Strategy: strategyCombined, Pattern: pattern, Reason: reason}
}

// build compiles one table per registered method plus one for MethodAll,
// which serves methods nobody registered explicitly.
func (m *combinedMatcher) build() error {
	methods := []string{MethodAll}
	for _, e := range m.entries {
		if !slices.Contains(methods, e.Method) {
			methods = append(methods, e.Method)
		}
	}
	m.methods = make(map[string]*compiledMethod, len(methods))
	for _, method := range methods {
		var entries []*HandlerEntry
		for _, e := range m.entries {
			if e.Method == method || e.Method == MethodAll {
				entries = append(entries, e)
			}
		}
		cm, err := m.compile(entries)
		if err != nil {
			return err
		}
		m.methods[method] = cm
	}
	return nil
}

func (m *combinedMatcher) match(method, path string) *MatchResult {
	cm, ok := m.methods[method]
	if !ok {
		cm = m.methods[MethodAll]
	}
	if cm == nil {
		return emptyResult
	}
	if path == "" {
		path = "/"
	}
	return cm.match(path)
}

// branch is one terminal node of the combined expression.
type branch struct {
	segs []Segment
	// slots holds the parameter slot of every capturing segment in segs.
	slots []int
	// chain is the chain template; bindings refer to capture groups.
	chain []MatchedEntry
}

type routeGroup struct {
	group  int
	branch int
}

type compiledMethod struct {
	re *regexp.Regexp
	// routes maps capture groups that tag an alternation branch to that branch.
	routes []routeGroup
	// slotGroups maps a parameter slot to its capture group.
	slotGroups []int
	branches   []*branch
	static     map[string]*MatchResult
}

func (cm *compiledMethod) match(path string) *MatchResult {
	if res, ok := cm.static[path]; ok {
		return res
	}
	if cm.re == nil {
		return emptyResult
	}
	loc := cm.re.FindStringSubmatchIndex(path)
	if loc == nil {
		return emptyResult
	}
	for _, rg := range cm.routes {
		if loc[2*rg.group] < 0 {
			continue
		}
		tmpl := cm.branches[rg.branch].chain
		chain := make([]MatchedEntry, len(tmpl))
		for i, me := range tmpl {
			chain[i] = MatchedEntry{HandlerEntry: me.HandlerEntry, Params: Params{path: path, loc: loc, binds: me.Params.binds}}
		}
		return &MatchResult{Entries: chain}
	}
	return emptyResult
}

// compile derives the shape of the patterns from a transient trie, emits the
// expression and resolves the tag groups into lookup tables.
func (m *combinedMatcher) compile(entries []*HandlerEntry) (*compiledMethod, error) {
	cm := &compiledMethod{static: make(map[string]*MatchResult)}
	if len(entries) == 0 {
		return cm, nil
	}
	t := newTrie()
	root := t.newNode(Segment{})
	for _, e := range entries {
		if _, err := t.insertAt(root, e); err != nil {
			return nil, err
		}
	}
	em := &emitter{t: t, entries: entries}
	var sb strings.Builder
	sb.WriteByte('^')
	if err := em.emit(&sb, root, nil, nil); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, m.unsupported(entries[0].Pattern.Raw, err.Error())
	}
	cm.re = re
	cm.branches = em.branches
	cm.slotGroups = make([]int, em.slots)
	for i, name := range re.SubexpNames() {
		if len(name) < 2 {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		switch name[0] {
		case 'r':
			cm.routes = append(cm.routes, routeGroup{group: i, branch: n})
		case 'p':
			cm.slotGroups[n] = i
		}
	}
	for _, b := range cm.branches {
		groups := make([]int, len(b.slots))
		for i, s := range b.slots {
			groups[i] = cm.slotGroups[s]
		}
		for _, e := range entries {
			if binds, ok := coverBindings(e, b.segs, groups); ok {
				b.chain = append(b.chain, MatchedEntry{HandlerEntry: e, Params: Params{binds: binds}})
			}
		}
		sortEntries(b.chain)
		if m.noStatic {
			continue
		}
		p := &Pattern{Segments: b.segs}
		if path, ok := p.literalPath(); ok {
			cm.static[path] = &MatchResult{Entries: b.chain}
		}
	}
	return cm, nil
}

type emitter struct {
	t        *trie
	entries  []*HandlerEntry
	branches []*branch
	slots    int
}

type childKey struct {
	key  string
	node int32
}

// emit writes the alternatives below node n. path and slots describe the
// segments walked so far.
func (em *emitter) emit(sb *strings.Builder, n int32, path []Segment, slots []int) error {
	node := &em.t.nodes[n]
	if len(node.params) > 1 {
		return em.unsupported(node, "differently constrained parameters at the same depth")
	}
	if node.wildcard != noNode && len(node.literals) > 0 {
		return em.unsupported(node, "wildcard segment beside literal siblings")
	}
	children := make([]childKey, 0, len(node.literals)+len(node.params)+2)
	for _, c := range node.literals {
		children = append(children, childKey{key: em.t.nodes[c].seg.key(), node: c})
	}
	for _, c := range node.params {
		children = append(children, childKey{key: em.t.nodes[c].seg.key(), node: c})
	}
	if node.wildcard != noNode {
		children = append(children, childKey{key: "*", node: node.wildcard})
	}
	if node.tail != noNode {
		children = append(children, childKey{key: "/*", node: node.tail})
	}
	slices.SortFunc(children, func(a, b childKey) int { return compareKeys(a.key, b.key) })

	alts := 0
	if len(children) > 0 || len(node.entries) > 0 {
		sb.WriteString("(?:")
	}
	if len(node.entries) > 0 {
		id := len(em.branches)
		em.branches = append(em.branches, &branch{segs: slices.Clone(path), slots: slices.Clone(slots)})
		if len(path) == 0 {
			sb.WriteByte('/')
		}
		sb.WriteString("$(?P<r" + strconv.Itoa(id) + ">)")
		alts++
	}
	for _, c := range children {
		if alts > 0 {
			sb.WriteByte('|')
		}
		alts++
		seg := em.t.nodes[c.node].seg
		childSlots := slots
		switch seg.Kind {
		case SegmentLiteral:
			sb.WriteString("/" + regexp.QuoteMeta(seg.Text))
		case SegmentParam, SegmentWildcard:
			slot := em.slots
			em.slots++
			expr := "[^/]+"
			if seg.Constraint != "" {
				expr = "(?:" + seg.Constraint + ")"
			}
			sb.WriteString("/(?P<p" + strconv.Itoa(slot) + ">" + expr + ")")
			childSlots = append(slots[:len(slots):len(slots)], slot)
		default:
			sb.WriteString("(?:|/(?s:.*))")
		}
		if err := em.emit(sb, c.node, append(path[:len(path):len(path)], seg), childSlots); err != nil {
			return err
		}
	}
	if alts > 0 {
		sb.WriteByte(')')
	}
	return nil
}

func (em *emitter) unsupported(node *trieNode, reason string) error {
	pattern := ""
	if len(node.entries) > 0 {
		pattern = node.entries[0].Pattern.Raw
	} else if len(em.entries) > 0 {
		pattern = em.entries[len(em.entries)-1].Pattern.Raw
	}
	return &UnsupportedPathError{Strategy: strategyCombined, Pattern: pattern, Reason: reason}
}

// compareKeys orders sibling alternatives: literals before parameters, the
// wildcard and tail keys last. Inside a class one-character keys follow
// longer keys, then longer keys come first, then lexical order.
func compareKeys(a, b string) int {
	if c := cmp.Compare(keyClass(a), keyClass(b)); c != 0 {
		return c
	}
	if (len(a) == 1) != (len(b) == 1) {
		if len(a) == 1 {
			return 1
		}
		return -1
	}
	if len(a) != len(b) {
		return cmp.Compare(len(b), len(a))
	}
	return strings.Compare(a, b)
}

func keyClass(k string) int {
	switch {
	case k == "*":
		return 2
	case k == "/*":
		return 3
	case strings.HasPrefix(k, ":"):
		return 1
	default:
		return 0
	}
}

// coverBindings reports whether every path matched by segs is also matched
// by e, and if so how e's parameters bind: to a capture group of the branch
// or to a constant literal. groups holds the capture group of every
// capturing segment in segs.
func coverBindings(e *HandlerEntry, segs []Segment, groups []int) ([]binding, bool) {
	js := e.Pattern.Segments
	var binds []binding
	ci := 0
	for k := 0; ; k++ {
		if k == len(js) {
			return binds, k == len(segs)
		}
		a := js[k]
		if a.Kind == SegmentTail {
			return binds, true
		}
		if k == len(segs) {
			return nil, false
		}
		b := segs[k]
		src := binding{group: -1}
		switch b.Kind {
		case SegmentTail:
			return nil, false
		case SegmentLiteral:
			if !a.accepts(b.Text) {
				return nil, false
			}
			src.value = b.Text
		default:
			src.group = groups[ci]
			ci++
			if !covered(a, b) {
				return nil, false
			}
		}
		if a.Kind == SegmentParam {
			src.name = a.Text
			binds = append(binds, src)
		}
	}
}

// covered reports whether pattern segment a accepts every text that the
// capturing segment b accepts.
func covered(a, b Segment) bool {
	switch a.Kind {
	case SegmentLiteral:
		return false
	case SegmentParam:
		if a.Constraint != "" {
			return b.Kind == SegmentParam && b.Constraint == a.Constraint
		}
	}
	if b.Kind == SegmentWildcard || b.Constraint == "" {
		return true
	}
	return !b.multi && !b.re.MatchString("")
}
