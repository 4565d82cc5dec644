package junction

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dormoron/junction/internal/errs"
)

// Context is the per-request view handed to every handler of a chain. It
// reads path and query parameters lazily and accumulates the response, which
// is materialized once after the chain finishes.
//
// Context implements context.Context by delegating to the request context.
type Context struct {
	Request *http.Request

	// MatchedRoute is the pattern of the most specific matched route, or ""
	// when the request matched no route.
	MatchedRoute string

	// Keys holds values shared between the handlers of one request.
	Keys  map[string]any
	mutex sync.RWMutex

	chain   []MatchedEntry
	current int
	// decoded memoizes decoded parameters per chain entry.
	decoded []map[string]string

	queryValues url.Values

	status    int
	header    http.Header
	body      []byte
	finalized bool
}

func newContext(req *http.Request, res *MatchResult) *Context {
	return &Context{
		Request:      req,
		MatchedRoute: res.Route(),
		chain:        res.Entries,
		current:      -1,
	}
}

func (c *Context) Deadline() (deadline time.Time, ok bool) {
	return c.Request.Context().Deadline()
}

func (c *Context) Done() <-chan struct{} {
	return c.Request.Context().Done()
}

func (c *Context) Err() error {
	return c.Request.Context().Err()
}

func (c *Context) Value(key any) any {
	if keyAsString, ok := key.(string); ok {
		if val, exists := c.Get(keyAsString); exists {
			return val
		}
	}
	return c.Request.Context().Value(key)
}

// Entry returns the chain entry currently running, or nil outside of a chain.
func (c *Context) Entry() *HandlerEntry {
	if c.current < 0 || c.current >= len(c.chain) {
		return nil
	}
	return c.chain[c.current].HandlerEntry
}

// Param returns the decoded path parameter bound by the running entry.
func (c *Context) Param(name string) string {
	v, _ := c.param(name)
	return v
}

// PathValue is Param with a typed accessor and an error for missing names.
func (c *Context) PathValue(name string) StringValue {
	v, ok := c.param(name)
	if !ok {
		return StringValue{err: errs.ErrKeyNotFound(name)}
	}
	return StringValue{val: v}
}

// Params decodes every parameter bound by the running entry.
func (c *Context) Params() map[string]string {
	if c.current < 0 || c.current >= len(c.chain) {
		return map[string]string{}
	}
	params := c.chain[c.current].Params
	out := make(map[string]string, params.Len())
	for _, b := range params.binds {
		out[b.name], _ = c.param(b.name)
	}
	return out
}

func (c *Context) param(name string) (string, bool) {
	if c.current < 0 || c.current >= len(c.chain) {
		return "", false
	}
	if memo := c.memo(); memo != nil {
		if v, ok := memo[name]; ok {
			return v, true
		}
	}
	raw, ok := c.chain[c.current].Params.Get(name)
	if !ok {
		return "", false
	}
	v := raw
	if strings.IndexByte(raw, '%') >= 0 {
		if unescaped, err := url.PathUnescape(raw); err == nil {
			v = unescaped
		}
	}
	if c.decoded == nil {
		c.decoded = make([]map[string]string, len(c.chain))
	}
	if c.decoded[c.current] == nil {
		c.decoded[c.current] = make(map[string]string, 2)
	}
	c.decoded[c.current][name] = v
	return v, true
}

func (c *Context) memo() map[string]string {
	if c.decoded == nil {
		return nil
	}
	return c.decoded[c.current]
}

// Query returns the first value of a query parameter. Until QueryAll or
// QueryValues is used it scans the raw query string instead of parsing it.
func (c *Context) Query(key string) string {
	v, _ := c.query(key)
	return v
}

func (c *Context) QueryValue(key string) StringValue {
	v, ok := c.query(key)
	if !ok {
		return StringValue{err: errs.ErrKeyNotFound(key)}
	}
	return StringValue{val: v}
}

// QueryValues returns all values of a query parameter.
func (c *Context) QueryValues(key string) []string {
	return c.QueryAll()[key]
}

// QueryAll parses the query string once and caches the result.
func (c *Context) QueryAll() url.Values {
	if c.queryValues == nil {
		// a malformed pair is skipped, the rest is kept
		c.queryValues, _ = url.ParseQuery(c.Request.URL.RawQuery)
	}
	return c.queryValues
}

func (c *Context) query(key string) (string, bool) {
	if c.queryValues != nil {
		vs := c.queryValues[key]
		if len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	}
	return scanQuery(c.Request.URL.RawQuery, key)
}

func scanQuery(raw, key string) (string, bool) {
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" || strings.Contains(pair, ";") {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if strings.ContainsAny(k, "%+") {
			unescaped, err := url.QueryUnescape(k)
			if err != nil {
				continue
			}
			k = unescaped
		}
		if k != key {
			continue
		}
		if strings.ContainsAny(v, "%+") {
			unescaped, err := url.QueryUnescape(v)
			if err != nil {
				continue
			}
			v = unescaped
		}
		return v, true
	}
	return "", false
}

// BindJSON decodes the request body into val.
func (c *Context) BindJSON(val any) error {
	if val == nil {
		return errs.ErrInputNil()
	}
	if c.Request.Body == nil {
		return errs.ErrKeyNil()
	}
	return json.NewDecoder(c.Request.Body).Decode(val)
}

// Set stores a value for the other handlers of this request.
func (c *Context) Set(key string, value any) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.Keys == nil {
		c.Keys = make(map[string]any)
	}
	c.Keys[key] = value
}

func (c *Context) Get(key string) (value any, exists bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	value, exists = c.Keys[key]
	return
}

func (c *Context) MustGet(key string) any {
	if value, exists := c.Get(key); exists {
		return value
	}
	panic("Key \"" + key + "\" does not exist")
}

func (c *Context) GetString(key string) (s string) {
	if val, ok := c.Get(key); ok && val != nil {
		s, _ = val.(string)
	}
	return
}

// ResponseHeader returns the accumulated response header.
func (c *Context) ResponseHeader() http.Header {
	if c.header == nil {
		c.header = make(http.Header)
	}
	return c.header
}

// Header sets a response header.
func (c *Context) Header(key, value string) {
	c.ResponseHeader().Set(key, value)
}

// Status sets the response status without producing a response.
func (c *Context) Status(code int) {
	c.status = code
}

// StatusCode returns the response status, http.StatusOK when none was set.
func (c *Context) StatusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

// Written reports whether a handler produced a response.
func (c *Context) Written() bool {
	return c.finalized
}

// ResponseBody returns the accumulated response body.
func (c *Context) ResponseBody() []byte {
	return c.body
}

// Data sets the whole response.
func (c *Context) Data(status int, contentType string, data []byte) error {
	if contentType != "" {
		c.Header("Content-Type", contentType)
	}
	c.status = status
	c.body = data
	c.finalized = true
	return nil
}

func (c *Context) String(status int, s string) error {
	return c.Data(status, "text/plain; charset=utf-8", []byte(s))
}

func (c *Context) RespJSON(status int, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.Data(status, "application/json", data)
}

func (c *Context) RespJSONOK(val any) error {
	return c.RespJSON(http.StatusOK, val)
}

func (c *Context) NoContent(status int) error {
	return c.Data(status, "", nil)
}

func (c *Context) Redirect(status int, location string) error {
	c.Header("Location", location)
	return c.Data(status, "", nil)
}

// resetResponse drops everything the chain produced, so the error handler
// starts from a clean response.
func (c *Context) resetResponse() {
	c.status = 0
	c.header = nil
	c.body = nil
	c.finalized = false
}

func (c *Context) response() *Response {
	return &Response{StatusCode: c.StatusCode(), Header: c.ResponseHeader(), Body: c.body}
}

// Response is the materialized result of a dispatch.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write copies the response onto w.
func (r *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for k, vs := range r.Header {
		h[k] = vs
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}
