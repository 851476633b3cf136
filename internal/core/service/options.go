package service

import (
	"time"

	"github.com/rl1809/wms-engine/internal/metrics"
)

// Logger receives diagnostic lines for swallowed side-effect failures.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Option customizes a service.
type Option func(*base)

func WithLogger(l Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

// WithClock overrides time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

type base struct {
	logger  Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func newBase(opts []Option) base {
	b := base{logger: nopLogger{}, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}
