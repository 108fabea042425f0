package handler

import (
	"context"
	"net/http"
	"sort"

	apperrors "github.com/kbukum/faultkit/errors"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/observability"
)

// Protocol names the surface a chain renders for.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolGRPC Protocol = "grpc"
)

// Handler claims failures and renders them as T. Handle also returns the
// business error the failure was reported as.
type Handler[T any] struct {
	Name      string
	Priority  int
	CanHandle func(err error) bool
	Handle    func(err error, path string) (T, *apperrors.BusinessError)
}

// Chain runs the first handler, in priority order, that claims a failure.
// The catch-all handler always runs last and claims everything, so every
// failure is handled exactly once. A Chain is immutable and safe for
// concurrent use.
type Chain[T any] struct {
	protocol Protocol
	handlers []Handler[T]
	catchAll Handler[T]
	opts     options
}

// NewChain creates a chain. handlers are ordered by priority, then by name;
// catchAll runs after all of them regardless of its priority.
func NewChain[T any](protocol Protocol, catchAll Handler[T], handlers []Handler[T], opts ...Option) *Chain[T] {
	return newChain(protocol, catchAll, handlers, newOptions(opts))
}

func newChain[T any](protocol Protocol, catchAll Handler[T], handlers []Handler[T], o options) *Chain[T] {
	return &Chain[T]{
		protocol: protocol,
		handlers: sorted(handlers),
		catchAll: catchAll,
		opts:     o,
	}
}

// With returns a chain that also consults handlers.
func (c *Chain[T]) With(handlers ...Handler[T]) *Chain[T] {
	all := make([]Handler[T], 0, len(c.handlers)+len(handlers))
	all = append(all, c.handlers...)
	all = append(all, handlers...)
	return &Chain[T]{
		protocol: c.protocol,
		handlers: sorted(all),
		catchAll: c.catchAll,
		opts:     c.opts,
	}
}

// Handlers returns the handler names in dispatch order, catch-all last.
func (c *Chain[T]) Handlers() []string {
	names := make([]string, 0, len(c.handlers)+1)
	for _, h := range c.handlers {
		names = append(names, h.Name)
	}
	return append(names, c.catchAll.Name)
}

// Protocol returns the protocol the chain renders for.
func (c *Chain[T]) Protocol() Protocol {
	return c.protocol
}

// Dispatch renders err with the first matching handler. It writes exactly
// one log record per call. A nil err returns the zero T.
func (c *Chain[T]) Dispatch(ctx context.Context, err error, path string) T {
	if err == nil {
		var zero T
		return zero
	}

	h := c.catchAll
	for _, candidate := range c.handlers {
		if candidate.CanHandle(err) {
			h = candidate
			break
		}
	}

	out, fault := h.Handle(err, path)
	if fault == nil {
		fault = apperrors.Wrap(apperrors.KindInternal, "", err)
	}
	c.report(ctx, h.Name, err, fault, path)
	return out
}

func (c *Chain[T]) report(ctx context.Context, handlerName string, err error, fault *apperrors.BusinessError, path string) {
	serverFault := fault.HTTPStatus() >= http.StatusInternalServerError

	fields := logger.Merge(fault.LogFields(), map[string]interface{}{
		logger.FieldHandler:  handlerName,
		logger.FieldPath:     path,
		logger.FieldProtocol: string(c.protocol),
		logger.FieldError:    err.Error(),
	})

	log := c.opts.logger.WithContext(ctx)
	if serverFault {
		log.Error(fault.Message(), fields)
	} else {
		log.Warn(fault.Message(), fields)
	}

	if c.opts.metrics != nil {
		c.opts.metrics.RecordFault(ctx, string(fault.Kind()), fault.Code(), string(c.protocol), handlerName)
	}
	observability.RecordFault(ctx, err, string(fault.Kind()), fault.Code(), serverFault)
}

func sorted[T any](handlers []Handler[T]) []Handler[T] {
	out := make([]Handler[T], len(handlers))
	copy(out, handlers)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}
