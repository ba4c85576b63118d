package middleware

import (
	"net/http"

	wrap "github.com/gothenburg-taxi/dispatch-service/pkg/logger/wrapper"
	"github.com/gothenburg-taxi/dispatch-service/pkg/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID takes the caller-supplied request id, or mints one, and puts
// it into the log context so every log line of the request carries it.
func (a *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.MustNew().String()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := wrap.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
