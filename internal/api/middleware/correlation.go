package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderCorrelationID = "X-Correlation-ID"

type ctxKey int

const (
	correlationIDKey ctxKey = iota
	loggerKey
)

// Correlation tags every request with an id taken from X-Correlation-ID,
// then chi's request id, then a fresh UUID. The id is echoed in the
// response and baked into a request-scoped logger.
func Correlation(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := correlationFor(r)
			w.Header().Set(HeaderCorrelationID, id)

			ctx := context.WithValue(r.Context(), correlationIDKey, id)
			ctx = context.WithValue(ctx, loggerKey, base.With(zap.String("correlation_id", id)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func correlationFor(r *http.Request) string {
	if id := r.Header.Get(HeaderCorrelationID); id != "" {
		return id
	}
	if id := chimw.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

// GetCorrelationID returns "" outside of Correlation.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}

// Logger returns the request-scoped logger, or fallback outside of
// Correlation.
func Logger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}
