package web

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/webdisk/internal/logger"
	"github.com/marmos91/webdisk/internal/ratelimiter"
	"github.com/marmos91/webdisk/pkg/metrics"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxPrincipal    = "principal"
)

// requestID propagates the caller's X-Request-ID or assigns a fresh one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// RequestIDFrom returns the request id assigned by the middleware.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// tracing starts a server span per request, continuing any trace context the
// client sent. Disk spans become its children.
func tracing() gin.HandlerFunc {
	tracer := otel.Tracer("webdisk/http")
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("webdisk.request_id", RequestIDFrom(c)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// accessLog writes one structured line per request.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := logger.With(
			"request_id", RequestIDFrom(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log = log.With("errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request")
		case status >= http.StatusBadRequest:
			log.Warn("HTTP request")
		default:
			log.Info("HTTP request")
		}
	}
}

// instrument records request metrics labelled by route template.
func instrument(m metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RecordRequestStart()
		defer m.RecordRequestEnd()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
		m.RecordBytes("in", c.Request.ContentLength)
		m.RecordBytes("out", int64(c.Writer.Size()))
	}
}

// rateLimit rejects clients exceeding their token bucket with 429.
func rateLimit(limiter *ratelimiter.PerClient, m metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := limiter.Allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}

		m.RecordRateLimited()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		abortWithError(c, http.StatusTooManyRequests, "Request rate limit exceeded")
	}
}

// bearerAuth accepts any non-empty bearer token and records it as the
// principal. There is no token verification: this is a placeholder for an
// external identity provider.
func bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			abortWithError(c, http.StatusForbidden, "Access denied")
			return
		}
		c.Set(ctxPrincipal, token)
		c.Next()
	}
}
