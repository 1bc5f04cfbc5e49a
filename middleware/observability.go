package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/junaidrashid-git/shopcart-api/logging"
	"github.com/junaidrashid-git/shopcart-api/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// Observability extracts W3C trace context, opens a server span, assigns a
// request id, attaches a request-scoped logger and records HTTP metrics.
func Observability(base *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	if base == nil {
		base = zap.NewNop()
	}
	prop := otel.GetTextMapPropagator()
	tracer := otel.Tracer("shopcart.http")

	return func(c *gin.Context) {
		start := time.Now()
		r := c.Request

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		rid := r.Header.Get(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(RequestIDHeader, rid)

		fields := []zap.Field{zap.String("request_id", rid)}
		if sc := span.SpanContext(); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
		reqLogger := base.With(fields...)
		c.Request = r.WithContext(logging.WithContext(ctx, reqLogger))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		m.HTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())

		reqLogger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	}
}
