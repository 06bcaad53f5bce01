package trace

import "context"

type ctxKey struct{}

type parentKey struct{}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

// WithParent records the span new spans under ctx should hang from.
func WithParent(ctx context.Context, s *Span) context.Context {
	if s == nil || s.id == 0 {
		return ctx
	}
	return context.WithValue(ctx, parentKey{}, s.id)
}

// ParentFrom returns the span id stored by WithParent, 0 if none.
func ParentFrom(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(parentKey{}).(uint64)
	return id
}
