package handler

import (
	"github.com/kbukum/faultkit/convert"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/observability"
)

type options struct {
	logger       *logger.Logger
	metrics      *observability.Metrics
	classifier   *convert.Classifier
	exposeDetail bool
}

// Option configures a chain.
type Option func(*options)

// WithLogger sets the logger dispatch records are written to.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics counts every dispatched failure.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClassifier sets the classifier the catch-all handler uses.
func WithClassifier(c *convert.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithExposeDetail makes the catch-all handler send the original error
// message to clients as detail. Off by default.
func WithExposeDetail(expose bool) Option {
	return func(o *options) { o.exposeDetail = expose }
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.GetGlobalLogger()
	}
	o.logger = o.logger.WithComponent("handler")
	if o.classifier == nil {
		o.classifier = convert.Default
	}
	return o
}
