package junction

import (
	"net/url"
	"regexp"
	"regexp/syntax"
	"strings"
)

// SegmentKind tags the variant held by a Segment.
type SegmentKind uint8

const (
	// SegmentLiteral matches one path segment by exact text.
	SegmentLiteral SegmentKind = iota
	// SegmentParam captures one path segment under a name. A constrained
	// parameter may capture several segments when its constraint allows '/'.
	SegmentParam
	// SegmentWildcard matches exactly one non-empty segment without naming it.
	SegmentWildcard
	// SegmentTail matches the remainder of the path, slashes included.
	SegmentTail
)

// Segment is one '/'-delimited component of a route pattern.
type Segment struct {
	Kind SegmentKind
	// Text is the escaped literal text for SegmentLiteral and the parameter
	// name for SegmentParam.
	Text       string
	Constraint string

	re    *regexp.Regexp
	multi bool
}

// captures reports whether a match records the text this segment consumed.
func (s Segment) captures() bool {
	return s.Kind == SegmentParam || s.Kind == SegmentWildcard
}

// rank orders segments from most to least specific.
func (s Segment) rank() int {
	switch s.Kind {
	case SegmentLiteral:
		return 0
	case SegmentParam:
		if s.Constraint != "" {
			return 1
		}
		return 2
	case SegmentWildcard:
		return 3
	default:
		return 4
	}
}

// key is the shape of the segment. Parameter names are not part of it.
func (s Segment) key() string {
	switch s.Kind {
	case SegmentLiteral:
		return "/" + s.Text
	case SegmentParam:
		return ":" + s.Constraint
	case SegmentWildcard:
		return "*"
	default:
		return "/*"
	}
}

// accepts reports whether a single raw path segment satisfies the segment.
func (s Segment) accepts(raw string) bool {
	switch s.Kind {
	case SegmentLiteral:
		return s.Text == raw
	case SegmentParam:
		if s.re != nil {
			return s.re.MatchString(raw)
		}
		return raw != ""
	case SegmentWildcard:
		return raw != ""
	default:
		return true
	}
}

// Pattern is a parsed route pattern.
type Pattern struct {
	Raw        string
	Segments   []Segment
	ParamCount int
}

// shape joins the segment keys. Two patterns with the same shape match the
// same set of paths.
func (p *Pattern) shape() string {
	if len(p.Segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for i, seg := range p.Segments {
		if i > 0 {
			sb.WriteByte('\x00')
		}
		sb.WriteString(seg.key())
	}
	return sb.String()
}

// literalPath returns the concrete path of a parameter-free pattern.
func (p *Pattern) literalPath() (string, bool) {
	if len(p.Segments) == 0 {
		return "/", true
	}
	var sb strings.Builder
	for _, seg := range p.Segments {
		if seg.Kind != SegmentLiteral {
			return "", false
		}
		sb.WriteByte('/')
		sb.WriteString(seg.Text)
	}
	return sb.String(), true
}

// ParsePattern splits a route pattern into segments. The grammar is
// `:name` for a parameter, `:name{regexp}` for a constrained parameter, `*`
// for a single-segment wildcard and a trailing `/*` for a tail wildcard.
func ParsePattern(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, newMalformed(raw, "pattern is empty")
	}
	if raw[0] != '/' {
		return nil, newMalformed(raw, "pattern must begin with '/'")
	}
	p := &Pattern{Raw: raw}
	if raw == "/" {
		return p, nil
	}
	parts, ok := splitPattern(raw[1:])
	if !ok {
		return nil, newMalformed(raw, "unbalanced braces in constraint")
	}
	p.Segments = make([]Segment, 0, len(parts))
	names := make(map[string]struct{}, 2)
	for i, part := range parts {
		last := i == len(parts)-1
		seg, err := parseSegment(raw, part, i, parts)
		if err != nil {
			return nil, err
		}
		if seg.Kind == SegmentLiteral && seg.Text == "" && !last {
			return nil, newMalformed(raw, "empty segment")
		}
		if seg.Kind == SegmentParam {
			if _, dup := names[seg.Text]; dup {
				return nil, newMalformed(raw, "duplicate parameter name "+seg.Text)
			}
			names[seg.Text] = struct{}{}
			p.ParamCount++
		}
		p.Segments = append(p.Segments, seg)
	}
	return p, nil
}

func parseSegment(raw, part string, i int, parts []string) (Segment, error) {
	last := i == len(parts)-1
	switch {
	case part == "*":
		if last {
			return Segment{Kind: SegmentTail}, nil
		}
		if i == len(parts)-2 && parts[len(parts)-1] == "" {
			return Segment{}, newMalformed(raw, "tail wildcard must be the final segment")
		}
		return Segment{Kind: SegmentWildcard}, nil
	case strings.HasPrefix(part, ":"):
		return parseParam(raw, part[1:])
	case strings.ContainsAny(part, "*{}"):
		return Segment{}, newMalformed(raw, "wildcard or brace inside literal segment "+part)
	}
	return Segment{Kind: SegmentLiteral, Text: escapeLiteral(part)}, nil
}

// escapeLiteral stores literal text in the escaped form a request path
// arrives in. Text that is already percent-encoded is first decoded so both
// spellings of a pattern end up the same.
func escapeLiteral(part string) string {
	if strings.Contains(part, "%") {
		if u, err := url.PathUnescape(part); err == nil {
			if strings.Contains(u, "/") {
				return part
			}
			part = u
		}
	}
	return (&url.URL{Path: part}).EscapedPath()
}

func parseParam(raw, body string) (Segment, error) {
	name, constraint, hasConstraint := strings.Cut(body, "{")
	if name == "" {
		return Segment{}, newMalformed(raw, "parameter without a name")
	}
	if strings.ContainsAny(name, ":*}") {
		return Segment{}, newMalformed(raw, "invalid parameter name "+name)
	}
	seg := Segment{Kind: SegmentParam, Text: name}
	if !hasConstraint {
		return seg, nil
	}
	if !strings.HasSuffix(constraint, "}") {
		return Segment{}, newMalformed(raw, "constraint must close the segment")
	}
	constraint = trimAnchors(constraint[:len(constraint)-1])
	if constraint == "" {
		return Segment{}, newMalformed(raw, "empty constraint for "+name)
	}
	parsed, err := syntax.Parse(constraint, syntax.Perl)
	if err != nil {
		return Segment{}, newMalformed(raw, "invalid constraint: "+err.Error())
	}
	if parsed.MaxCap() > 0 {
		return Segment{}, newMalformed(raw, "capturing group in constraint for "+name)
	}
	if hasAnchor(parsed) {
		return Segment{}, newMalformed(raw, "anchor inside constraint for "+name)
	}
	re, err := regexp.Compile("^(?:" + constraint + ")$")
	if err != nil {
		return Segment{}, newMalformed(raw, "invalid constraint: "+err.Error())
	}
	seg.Constraint = constraint
	seg.re = re
	seg.multi = spansSlash(parsed)
	return seg, nil
}

// splitPattern splits on '/' outside of constraint braces.
func splitPattern(body string) ([]string, bool) {
	parts := make([]string, 0, strings.Count(body, "/")+1)
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return nil, false
			}
			depth--
		case '/':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, false
	}
	return append(parts, body[start:]), true
}

// trimAnchors drops one leading '^' and one unescaped trailing '$'. A
// constraint always matches the whole segment, so both are redundant.
func trimAnchors(c string) string {
	c = strings.TrimPrefix(c, "^")
	if strings.HasSuffix(c, "$") {
		slashes := 0
		for i := len(c) - 2; i >= 0 && c[i] == '\\'; i-- {
			slashes++
		}
		if slashes%2 == 0 {
			c = c[:len(c)-1]
		}
	}
	return c
}

// hasAnchor reports whether re still asserts a text or line boundary.
func hasAnchor(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpBeginText, syntax.OpEndText, syntax.OpBeginLine, syntax.OpEndLine:
		return true
	}
	for _, sub := range re.Sub {
		if hasAnchor(sub) {
			return true
		}
	}
	return false
}

// spansSlash reports whether re can match text containing '/'.
func spansSlash(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			if r == '/' {
				return true
			}
		}
	case syntax.OpCharClass:
		for i := 0; i+1 < len(re.Rune); i += 2 {
			if re.Rune[i] <= '/' && '/' <= re.Rune[i+1] {
				return true
			}
		}
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		return true
	}
	for _, sub := range re.Sub {
		if spansSlash(sub) {
			return true
		}
	}
	return false
}

// splitPath splits a concrete request path into raw segments.
func splitPath(path string) ([]string, bool) {
	if path == "" || path == "/" {
		return nil, true
	}
	if path[0] != '/' {
		return nil, false
	}
	return strings.Split(path[1:], "/"), true
}
