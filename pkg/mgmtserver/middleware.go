package mgmtserver

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/google/uuid"
)

type contextKey string

const (
	requestIDKey    contextKey = "requestID"
	requestIDHeader            = "X-Request-ID"
)

// RequestID returns the request id stored by the request-id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// recoverMiddleware turns handler panics into a 500 problem response when
// nothing was written yet.
func recoverMiddleware(o11y observability.Observability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}

				requestID := RequestID(r.Context())
				o11y.Logger().Error(r.Context(), "panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.String("request_id", requestID),
					observability.String("stack", string(debug.Stack())),
					observability.Any("panic", recovered),
				)

				if rw.HeaderWritten() {
					o11y.Logger().Warn(r.Context(),
						"cannot send panic error response: headers already sent",
						observability.String("request_id", requestID),
					)
					return
				}
				writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

func requestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)

			if strings.TrimSpace(requestID) == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set(requestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bodyLimitMiddleware applies MaxBytesReader whatever Content-Length says.
func bodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			if r.ContentLength > maxBytes {
				writeErrorResponse(w, r, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter records whether the status line has been sent.
type responseWriter struct {
	http.ResponseWriter
	mu            sync.Mutex
	headerWritten bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if !rw.headerWritten {
		rw.headerWritten = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.headerWritten = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) HeaderWritten() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.headerWritten
}
