package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/courserate-sg/server/internal/api"

// Tracing opens a server span per request, continuing any W3C trace context the
// caller sent. The span is named "METHOD route"; once the mux has dispatched, the
// registered pattern (for example /api/v1/courses/{id}/stats) replaces the
// guessed template. Place it after CorrelationID so spans carry request_id.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	propagator := otel.GetTextMapPropagator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeTemplate(r.URL.Path)
		attrs := []attribute.KeyValue{
			semconv.HTTPMethod(r.Method),
			semconv.HTTPURL(r.URL.String()),
			semconv.HTTPScheme(schemeFromRequest(r)),
			semconv.NetHostName(r.Host),
			attribute.String("http.user_agent", r.UserAgent()),
		}
		if requestID := GetRequestID(ctx); requestID != "" {
			attrs = append(attrs, attribute.String("request_id", requestID))
		}

		ctx, span := tracer.Start(ctx, r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		req := r.WithContext(ctx)
		next.ServeHTTP(rec, req)

		if pattern := muxPattern(req); pattern != "" && pattern != "/" {
			route = pattern
			span.SetName(r.Method + " " + route)
		}
		span.SetAttributes(semconv.HTTPRoute(route), semconv.HTTPStatusCode(rec.status))

		switch {
		case rec.status >= 500:
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		case rec.status >= 400:
			// Client errors are recorded but do not fail the server span.
			span.SetAttributes(attribute.Bool("http.client_error", true))
		default:
			span.SetStatus(codes.Ok, "")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// muxPattern returns the ServeMux pattern without its optional method prefix.
func muxPattern(r *http.Request) string {
	pattern := r.Pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = pattern[i+1:]
	}
	return pattern
}

func schemeFromRequest(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme == "http" || scheme == "https" {
		return scheme
	}
	return "http"
}

// routeTemplate replaces numeric path segments with {id} so span names stay bounded.
func routeTemplate(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if _, err := strconv.ParseInt(segment, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
