//go:build !notrace

package dtd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"runtime"
	"time"
)

// TracingEnabled is false when built with -tags notrace.
const TracingEnabled = true

type traceLoggerKey struct{}
type spanIDKey struct{}

// the null logger is a logger that does nothing
var nullLogger = slog.New(slog.DiscardHandler)

// Span is an open tracing span. End logs its duration.
type Span interface {
	End()
}

// SpanInfo holds information about a tracing span
type SpanInfo struct {
	ID       string
	ParentID string
	Name     string
	Start    time.Time
	Tags     map[string]string
}

type span struct {
	ctx  context.Context
	info *SpanInfo
}

func (s *span) End() {
	getTraceLogFromContext(s.ctx).LogAttrs(s.ctx, slog.LevelDebug, "END",
		slog.String("span_id", s.info.ID),
		slog.String("span_name", s.info.Name),
		slog.Duration("duration", time.Since(s.info.Start)),
	)
}

// WithTraceLogger returns a context carrying tlog. The parser logs
// entity expansion, declarations and diagnostics to it at debug level.
func WithTraceLogger(ctx context.Context, tlog *slog.Logger) context.Context {
	// If the context already has a trace logger, return the context as is
	if _, ok := ctx.Value(traceLoggerKey{}).(*slog.Logger); ok {
		return ctx
	}

	return context.WithValue(ctx, traceLoggerKey{}, tlog)
}

// WithSpan creates a new span as a child of the span in ctx, if any.
func WithSpan(ctx context.Context, name string) (context.Context, *SpanInfo) {
	info := &SpanInfo{
		ID:    generateSpanID(),
		Name:  name,
		Start: time.Now(),
	}
	if parent, ok := ctx.Value(spanIDKey{}).(*SpanInfo); ok {
		info.ParentID = parent.ID
	}
	return context.WithValue(ctx, spanIDKey{}, info), info
}

// StartSpan creates a span and logs its start.
func StartSpan(ctx context.Context, spanName string) (context.Context, Span) {
	ctx, info := WithSpan(ctx, spanName)
	getTraceLogFromContext(ctx).LogAttrs(ctx, slog.LevelDebug, "START",
		slog.String("span_id", info.ID),
		slog.String("span_name", info.Name),
	)
	return ctx, &span{ctx: ctx, info: info}
}

// TraceEvent logs a structured event at debug level.
func TraceEvent(ctx context.Context, msg string, attrs ...slog.Attr) {
	getTraceLogFromContext(ctx).LogAttrs(ctx, slog.LevelDebug, msg, append(spanAttrs(ctx), attrs...)...)
}

// TraceError logs err at error level.
func TraceError(ctx context.Context, err error, msg string, attrs ...slog.Attr) {
	attrs = append(spanAttrs(ctx), append(attrs, slog.Any("error", err))...)
	getTraceLogFromContext(ctx).LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func spanAttrs(ctx context.Context) []slog.Attr {
	info, ok := ctx.Value(spanIDKey{}).(*SpanInfo)
	if !ok {
		return nil
	}
	return []slog.Attr{slog.String("span_id", info.ID)}
}

func getTraceLogFromContext(ctx context.Context) *slog.Logger {
	if tlog, ok := ctx.Value(traceLoggerKey{}).(*slog.Logger); ok {
		// Retrieve the function name of the caller for tracing
		pc, _, _, ok := runtime.Caller(2)
		if ok {
			fn := runtime.FuncForPC(pc)
			if fn != nil {
				tlog = tlog.With(slog.String("fn", fn.Name()))
			}
		}

		return tlog
	}

	return nullLogger
}

func generateSpanID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
