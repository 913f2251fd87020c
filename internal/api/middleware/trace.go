package middleware

import (
	"log/slog"
	"net/http"
	"regexp"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/scribe-api/internal/api/shared"
	"github.com/phrazzld/scribe-api/internal/platform/logger"
)

var validTraceID = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// NewTraceMiddleware tags every request with a trace ID and a request-scoped
// logger. A well-formed X-Trace-ID from the client is reused; otherwise a new
// one is generated. The ID is echoed in the response headers.
func NewTraceMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			incoming := r.Header.Get(shared.TraceIDHeader)
			if !validTraceID.MatchString(incoming) {
				incoming = ""
			}
			ctx := shared.WithTraceID(r.Context(), incoming)
			traceID := shared.GetTraceID(ctx)

			ctx = logger.WithLogger(ctx, log.With(slog.String("trace_id", traceID)))
			if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
				ctx = logger.WithRequestID(ctx, reqID)
			}

			w.Header().Set(shared.TraceIDHeader, traceID)

			logger.FromContext(ctx).Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
