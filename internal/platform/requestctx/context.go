package requestctx

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey  contextKey = "github.com/seatosky/storefront/internal/platform/requestctx/logger"
	traceContextKey   contextKey = "github.com/seatosky/storefront/internal/platform/requestctx/trace"
	visitorContextKey contextKey = "github.com/seatosky/storefront/internal/platform/requestctx/visitor"
)

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores the trace metadata on the context for downstream usage.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceContextKey, info)
}

// Trace retrieves the trace metadata from context when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceContextKey).(TraceInfo)
	return info, ok
}

// TraceID extracts the trace identifier from context when present.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// VisitorSlot is a write-once holder for the visitor identifier. Outer
// middleware installs the slot; the session layer fills it in.
type VisitorSlot struct {
	mu sync.Mutex
	id string
}

// WithVisitorSlot installs an empty slot on the context.
func WithVisitorSlot(ctx context.Context) (context.Context, *VisitorSlot) {
	slot := &VisitorSlot{}
	return context.WithValue(ctx, visitorContextKey, slot), slot
}

// SetVisitorID records the visitor identifier when a slot is present.
func SetVisitorID(ctx context.Context, id string) {
	if slot, ok := ctx.Value(visitorContextKey).(*VisitorSlot); ok && slot != nil {
		slot.mu.Lock()
		slot.id = id
		slot.mu.Unlock()
	}
}

// VisitorID returns the recorded visitor identifier.
func VisitorID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	slot, ok := ctx.Value(visitorContextKey).(*VisitorSlot)
	if !ok || slot == nil {
		return ""
	}
	return slot.ID()
}

// ID returns the recorded identifier.
func (s *VisitorSlot) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}
