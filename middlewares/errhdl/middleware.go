package errhdl

import (
	"net/http"

	"github.com/dormoron/junction"
	"github.com/dormoron/junction/internal/errs"
)

// MiddlewareBuilder replaces the body of responses whose status has a
// registered body. Register it with Use so that it also wraps the not-found
// response.
type MiddlewareBuilder struct {
	resp       map[int][]byte
	jsonErrors bool
}

func InitMiddlewareBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{resp: make(map[int][]byte)}
}

// AddCode registers the body written for status.
func (m *MiddlewareBuilder) AddCode(status int, data []byte) *MiddlewareBuilder {
	m.resp[status] = data
	return m
}

// AddJSONCode registers a JSON error body derived from status.
func (m *MiddlewareBuilder) AddJSONCode(status int, message string) *MiddlewareBuilder {
	m.resp[status] = errs.NewErrorFromStatus(status, message).ToJSON()
	return m
}

// JSONErrors answers handler errors with an APIError body instead of
// passing them on to the server's error handler. A missing path, query or
// config key becomes a 400.
func (m *MiddlewareBuilder) JSONErrors() *MiddlewareBuilder {
	m.jsonErrors = true
	return m
}

func (m *MiddlewareBuilder) Build() junction.Middleware {
	return func(next junction.HandleFunc) junction.HandleFunc {
		return func(ctx *junction.Context) error {
			if err := next(ctx); err != nil {
				if !m.jsonErrors {
					return err
				}
				return writeError(ctx, err)
			}
			status := ctx.StatusCode()
			if resp, ok := m.resp[status]; ok {
				return ctx.Data(status, "", resp)
			}
			return nil
		}
	}
}

func writeError(ctx *junction.Context, err error) error {
	apiErr := errs.WrapError(err)
	if errs.IsKeyNotFound(err) {
		apiErr = errs.NewErrorFromStatus(http.StatusBadRequest, "").WithDetails(err.Error())
	}
	return ctx.Data(apiErr.Code, "application/json", apiErr.ToJSON())
}
