package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dormoron/junction"
)

type MiddlewareBuilder struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

func InitMiddlewareBuilder(namespace string, subsystem string, name string, help string) *MiddlewareBuilder {
	return &MiddlewareBuilder{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}
}

// Build registers a summary of request latency in microseconds, labelled by
// matched pattern, method and status.
func (m *MiddlewareBuilder) Build() junction.Middleware {
	vector := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: m.Namespace,
		Subsystem: m.Subsystem,
		Name:      m.Name,
		Help:      m.Help,
		Objectives: map[float64]float64{
			0.5:   0.01,
			0.75:  0.01,
			0.90:  0.01,
			0.99:  0.001,
			0.999: 0.0001,
		},
	}, []string{"pattern", "method", "status"})
	reg := m.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(vector)

	return func(next junction.HandleFunc) junction.HandleFunc {
		return func(ctx *junction.Context) error {
			startTime := time.Now()
			defer func() {
				duration := time.Since(startTime).Microseconds()
				pattern := ctx.MatchedRoute
				if pattern == "" {
					pattern = "unknown"
				}
				vector.WithLabelValues(pattern, ctx.Request.Method, strconv.Itoa(ctx.StatusCode())).Observe(float64(duration))
			}()
			return next(ctx)
		}
	}
}
